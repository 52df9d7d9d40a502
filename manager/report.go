package manager

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BuildReport renders the report body for the presentation layer.
func (sm *SafetyManager) BuildReport() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.buildReport()
}

// FinalizeAndReport renders the full report with its banner and returns the
// text together with a timestamped filename for persisting it.
func (sm *SafetyManager) FinalizeAndReport() (string, string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.Stats.EndTime = sm.simTime
	now := time.Now()

	var b strings.Builder
	b.WriteString("V2X TRAFFIC SAFETY MONITOR - SIMULATION REPORT\n")
	b.WriteString(strings.Repeat("=", 70) + "\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Run ID: %s\n", sm.RunID)
	b.WriteString(strings.Repeat("=", 70) + "\n\n")
	b.WriteString(sm.buildReport())
	b.WriteString("\nEND OF REPORT\n")
	b.WriteString(strings.Repeat("=", 70) + "\n")

	filename := fmt.Sprintf("v2x_safety_report_%s.txt", now.Format("20060102_150405"))
	return b.String(), filename
}

// WriteReport persists report text under dir and returns the full path. A
// write failure leaves all in-memory state untouched.
func WriteReport(dir, filename, text string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

func section(b *strings.Builder, title string) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
}

// buildReport renders the fixed-order report body. Caller holds sm.mu.
// Scores and rates print with two decimals, physical quantities with one.
func (sm *SafetyManager) buildReport() string {
	var b strings.Builder

	section(&b, "SIMULATION PARAMETERS")
	fmt.Fprintf(&b, "Planned Duration: %.1f s\n", sm.cfg.MaxDuration)
	fmt.Fprintf(&b, "Actual Duration: %.1f s\n", sm.simTime)
	fmt.Fprintf(&b, "Simulation Steps: %d\n", sm.step)
	fmt.Fprintf(&b, "Step Length: %.1f s\n", sm.cfg.StepLength)
	fmt.Fprintf(&b, "RSUs Deployed: %d\n", len(sm.cfg.RSUs))
	b.WriteString("\n")

	if len(sm.Vehicles) == 0 {
		section(&b, "NO DATA")
		b.WriteString("No vehicle data collected during simulation.\n")
		return b.String()
	}

	var speeds []float64
	for _, rec := range sm.Vehicles {
		if len(rec.Speeds) > 0 {
			speeds = append(speeds, rec.LastSpeed)
		}
	}
	avgSpeed, maxSpeed, minSpeed := summarize(speeds)

	distance := 0.0
	for _, rec := range sm.Vehicles {
		if len(rec.Positions) > 1 {
			distance += float64(len(rec.Positions)) * avgSpeed * sm.cfg.StepLength
		}
	}

	section(&b, "PERFORMANCE METRICS")
	fmt.Fprintf(&b, "Total Vehicles Tracked: %d\n", len(sm.Vehicles))
	fmt.Fprintf(&b, "Average Speed: %.1f m/s (%.1f km/h)\n", avgSpeed, avgSpeed*3.6)
	fmt.Fprintf(&b, "Maximum Speed: %.1f m/s\n", maxSpeed)
	fmt.Fprintf(&b, "Minimum Speed: %.1f m/s\n", minSpeed)
	fmt.Fprintf(&b, "Estimated Total Distance: %.1f m\n", distance)
	b.WriteString("\n")

	section(&b, "VEHICLE DISTRIBUTION")
	typeCounts := make(map[string]int)
	for _, rec := range sm.Vehicles {
		typeCounts[rec.Type]++
	}
	types := make([]string, 0, len(typeCounts))
	for vtype := range typeCounts {
		types = append(types, vtype)
	}
	sort.Strings(types)
	for _, vtype := range types {
		count := typeCounts[vtype]
		percentage := float64(count) / float64(len(sm.Vehicles)) * 100
		fmt.Fprintf(&b, "%s: %d vehicles (%.2f%%)\n", vtype, count, percentage)
	}
	b.WriteString("\n")

	section(&b, "TRAFFIC MANAGEMENT")
	fmt.Fprintf(&b, "Signal Broadcasts: %d\n", sm.Stats.SignalBroadcasts)
	fmt.Fprintf(&b, "V2X Warnings Issued: %d\n", sm.Stats.Warnings)
	fmt.Fprintf(&b, "RSU Messages: %d\n", sm.Stats.RSUMessages)
	fmt.Fprintf(&b, "Vehicle-to-Vehicle Messages: %d\n", sm.Stats.V2VMessages)
	fmt.Fprintf(&b, "Total Stop Time: %.1f s\n", sm.Stats.TotalStopTime)
	b.WriteString("\n")

	section(&b, "SAFETY ANALYSIS")
	fmt.Fprintf(&b, "Near Misses Detected: %d\n", sm.Stats.NearMisses)
	fmt.Fprintf(&b, "Safety Interventions: %d\n", sm.Stats.Interventions)
	fmt.Fprintf(&b, "Accidents Prevented: %d\n", sm.Stats.AccidentsPrevented)
	fmt.Fprintf(&b, "Emergency Vehicles: %d\n", sm.Stats.EmergencyVehicles)
	if sm.Stats.NearMisses > 0 {
		preventionRate := float64(sm.Stats.AccidentsPrevented) /
			float64(sm.Stats.NearMisses+sm.Stats.AccidentsPrevented) * 100
		fmt.Fprintf(&b, "Prevention Rate: %.2f%%\n", preventionRate)
	}
	b.WriteString("\n")

	scores := sm.scores()
	section(&b, "SYSTEM EFFICIENCY SCORES")
	fmt.Fprintf(&b, "Traffic Flow Efficiency: %.2f%%\n", scores.Efficiency)
	fmt.Fprintf(&b, "Safety Score: %.2f%%\n", scores.Safety)
	fmt.Fprintf(&b, "V2X Communication Score: %.2f%%\n", scores.Communication)
	fmt.Fprintf(&b, "Overall System Score: %.2f%%\n", scores.Overall)
	fmt.Fprintf(&b, "Score Weights: safety %.2f, efficiency %.2f, communication %.2f\n",
		sm.cfg.SafetyWeight, sm.cfg.EfficiencyWeight, sm.cfg.CommunicationWeight)
	b.WriteString("\n")

	section(&b, "V2X COMMUNICATION ANALYSIS")
	elapsed := sm.simTime + 1
	fmt.Fprintf(&b, "V2X Message Rate: %.2f messages/s\n", float64(sm.Stats.RSUMessages)/elapsed)
	fmt.Fprintf(&b, "Safety Warning Rate: %.2f warnings/s\n", float64(sm.Stats.Warnings)/elapsed)
	fmt.Fprintf(&b, "Vehicle-to-Infrastructure Events: %d\n", sm.Stats.V2VMessages)
	fmt.Fprintf(&b, "Total V2X Events: %d\n", sm.Stats.RSUMessages+sm.Stats.Warnings)

	if n := len(sm.Stats.AvgSpeeds); n >= sm.cfg.TrendWindow {
		initial := mean(sm.Stats.AvgSpeeds[:sm.cfg.TrendWindow])
		final := mean(sm.Stats.AvgSpeeds[n-sm.cfg.TrendWindow:])

		trend := "stable"
		if final > initial {
			trend = "improving"
		} else if final < initial {
			trend = "declining"
		}

		b.WriteString("\n")
		section(&b, "PERFORMANCE TRENDS")
		fmt.Fprintf(&b, "Initial Average Speed: %.1f m/s\n", initial)
		fmt.Fprintf(&b, "Final Average Speed: %.1f m/s\n", final)
		fmt.Fprintf(&b, "Traffic Flow Trend: %s\n", trend)
	}

	return b.String()
}

func summarize(values []float64) (avg, max, min float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}

	max = values[0]
	min = values[0]
	total := 0.0
	for _, v := range values {
		total += v
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return total / float64(len(values)), max, min
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
