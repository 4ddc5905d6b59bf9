package eventstudy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// GenerateConsoleReport formats a run for terminal output.
func GenerateConsoleReport(result *RunResult) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Signal Evaluation: %s\n", result.Ticker))
	builder.WriteString("========================\n")
	builder.WriteString(fmt.Sprintf("Verdict: %s\n", result.Verdict.Verdict))
	if result.Verdict.ChosenHorizon > 0 {
		builder.WriteString(fmt.Sprintf("Chosen Horizon: %d days\n", result.Verdict.ChosenHorizon))
	}
	builder.WriteString(fmt.Sprintf("Valid Events: %d of %d raw crossovers\n", len(ValidEvents(result.Events)), len(result.Events)))
	builder.WriteString(fmt.Sprintf("Spread: %.1f bps (ok=%t)  ADV: $%.0f (ok=%t)\n",
		result.Capacity.SpreadBps, result.Capacity.SpreadOK, result.Capacity.ADVUSD, result.Capacity.ADVOK))
	if len(result.Verdict.Flags) > 0 {
		builder.WriteString(fmt.Sprintf("Flags: %s\n", strings.Join(result.Verdict.Flags, ", ")))
	}

	if len(result.HorizonStats) > 0 {
		builder.WriteString("\nHorizon   N   MeanCAR  MedianCAR   p-value   q-value  Hit%%  Effect  Sig\n")
		for _, hs := range result.HorizonStats {
			builder.WriteString(fmt.Sprintf("%6dd %3d  %+.4f    %+.4f   %7.4f   %7.4f  %4.0f  %6s  %t\n",
				hs.HorizonDays, hs.N, hs.MeanCAR, hs.MedianCAR, hs.PValue, hs.QValue, hs.HitRate*100, hs.EffectBucket(), hs.Significant))
		}
	}
	return builder.String()
}

// GenerateCSVExport writes the horizon table for spreadsheets.
func GenerateCSVExport(result *RunResult, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	var builder strings.Builder
	builder.WriteString("horizon_days,n,mean_car,median_car,median_car_net,std_car,effect_size,p_value,q_value,ci_low,ci_high,hit_rate,significant\n")
	for _, hs := range result.HorizonStats {
		builder.WriteString(fmt.Sprintf("%d,%d,%.6f,%.6f,%.6f,%.6f,%.4f,%.6f,%.6f,%.6f,%.6f,%.4f,%t\n",
			hs.HorizonDays, hs.N, hs.MeanCAR, hs.MedianCAR, hs.MedianCARNet, hs.StdCAR,
			hs.EffectSize, hs.PValue, hs.QValue, hs.CILow, hs.CIHigh, hs.HitRate, hs.Significant))
	}
	return os.WriteFile(outputPath, []byte(builder.String()), 0o644)
}
