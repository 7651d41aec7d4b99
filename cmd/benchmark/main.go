package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/limaJavier/cctt/pkg/model"
	"github.com/samber/lo"
)

const (
	exitFound    = 10
	exitNotFound = 20
	MB           = 1024.0
)

type ResultType int

const (
	solved ResultType = iota
	notFound
)

var resultTypes = map[ResultType]string{
	solved:   "solved",
	notFound: "not-found",
}

// Variant is one way of running the solver over every instance.
type Variant struct {
	Strategy string
	Backend  string
}

func (variant Variant) args() []string {
	if variant.Strategy == "monolithic" {
		return []string{"--monolithic", "--backend", variant.Backend}
	}
	return []string{"--strategy", variant.Strategy, "--backend", variant.Backend}
}

type InstanceMetadata struct {
	Name      string
	Path      string
	Courses   int
	Lectures  int
	Rooms     int
	Curricula int
	Days      int
	Periods   int
}

type BenchmarkResult struct {
	Variant       Variant
	Instance      InstanceMetadata
	Duration      time.Duration
	Memory        float64
	CpuPercentage int
	BestCost      *int
	Result        ResultType
}

func main() {
	executable := flag.String("exe", "../../bin/cctt", "Path to the cctt executable")
	directory := flag.String("dir", "../../instances", "Directory holding the .ctt instances")
	out := flag.String("out", "benchmark_results.csv", "Path of the CSV report")
	timeLimit := flag.Duration("time-limit", 10*time.Minute, "Time limit of the top search of each run")
	backends := flag.String("backends", "gophersat", "Comma separated backends to benchmark")
	flag.Parse()

	instances, err := getInstances(*directory)
	if err != nil {
		log.Fatalf("cannot collect instances: %v", err)
	}
	variants := getVariants(strings.Split(*backends, ","))
	results := make([]BenchmarkResult, 0, len(instances)*len(variants))

	for _, instance := range instances {
		for _, variant := range variants {
			fmt.Printf("Benchmarking instance \"%v\" with strategy \"%v\" and backend \"%v\"\n", instance.Name, variant.Strategy, variant.Backend)

			result, err := measure(*executable, variant, instance, *timeLimit)
			if err != nil {
				log.Fatalf("an error occurred while solving \"%v\" with strategy \"%v\" and backend \"%v\": %v", instance.Path, variant.Strategy, variant.Backend, err)
			}
			results = append(results, result)
		}
	}

	if err := toCsv(*out, results); err != nil {
		log.Fatalf("cannot write the report: %v", err)
	}
}

func getInstances(directory string) ([]InstanceMetadata, error) {
	files, err := os.ReadDir(directory)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory: %w", err)
	}

	instances := make([]InstanceMetadata, 0)
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".ctt" {
			continue
		}
		path := filepath.Join(directory, file.Name())
		instance, err := model.InstanceFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot parse instance file %v: %w", path, err)
		}
		instances = append(instances, InstanceMetadata{
			Name:      instance.Name,
			Path:      path,
			Courses:   len(instance.Courses),
			Lectures:  lo.SumBy(instance.Courses, func(course model.Course) int { return course.Lectures }),
			Rooms:     len(instance.Rooms),
			Curricula: instance.ProperCurricula,
			Days:      instance.Days,
			Periods:   instance.PeriodsPerDay,
		})
	}
	return instances, nil
}

func getVariants(backends []string) []Variant {
	variants := make([]Variant, 0)
	for _, backend := range lo.Compact(lo.Map(backends, func(backend string, _ int) string { return strings.TrimSpace(backend) })) {
		for _, strategy := range []string{"contract", "anytime", "monolithic"} {
			variants = append(variants, Variant{Strategy: strategy, Backend: backend})
		}
	}
	return variants
}

func measure(executable string, variant Variant, instance InstanceMetadata, timeLimit time.Duration) (BenchmarkResult, error) {
	args := append([]string{"-v", executable, "--log-level", "error", "solve", instance.Path, "--time-limit", timeLimit.String()}, variant.args()...)
	cmd := exec.Command("/usr/bin/time", args...)

	var stdOut bytes.Buffer
	cmd.Stdout = &stdOut
	var stdErr bytes.Buffer
	cmd.Stderr = &stdErr

	result := BenchmarkResult{Variant: variant, Instance: instance}
	err := cmd.Run()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return result, err
	}
	switch cmd.ProcessState.ExitCode() {
	case exitFound:
		result.Result = solved
		cost, err := parseBestCost(stdOut.String())
		if err != nil {
			return result, err
		}
		result.BestCost = &cost
	case exitNotFound:
		result.Result = notFound
	default:
		return result, fmt.Errorf("exit code %d: %v", cmd.ProcessState.ExitCode(), stdErr.String())
	}

	splits := strings.Split(stdErr.String(), "\n")
	getLine := func(substr string) (string, error) {
		line, ok := lo.Find(splits, func(line string) bool {
			return strings.Contains(strings.ToLower(line), substr)
		})
		if !ok {
			return "", fmt.Errorf("substring \"%v\" could not be found", substr)
		}
		return line, nil
	}

	line, err := getLine("wall clock")
	if err != nil {
		return result, err
	}
	if result.Duration, err = parseDurationLine(line); err != nil {
		return result, err
	}
	if line, err = getLine("maximum resident set size"); err != nil {
		return result, err
	}
	if result.Memory, err = parseMemoryLine(line); err != nil {
		return result, err
	}
	if line, err = getLine("percent of cpu"); err != nil {
		return result, err
	}
	if result.CpuPercentage, err = parseCpuPercentageLine(line); err != nil {
		return result, err
	}
	return result, nil
}

func toCsv(path string, results []BenchmarkResult) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	header := []string{"Strategy", "Backend", "Instance", "Courses", "Lectures", "Rooms", "Curricula", "Days", "Periods", "Duration(ms)", "Memory(MB)", "CPU(%)", "Result", "BestCost"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("cannot write CSV header: %w", err)
	}

	for _, result := range results {
		bestCost := ""
		if result.BestCost != nil {
			bestCost = strconv.Itoa(*result.BestCost)
		}
		record := []string{
			result.Variant.Strategy,
			result.Variant.Backend,
			result.Instance.Name,
			strconv.Itoa(result.Instance.Courses),
			strconv.Itoa(result.Instance.Lectures),
			strconv.Itoa(result.Instance.Rooms),
			strconv.Itoa(result.Instance.Curricula),
			strconv.Itoa(result.Instance.Days),
			strconv.Itoa(result.Instance.Periods),
			strconv.FormatInt(result.Duration.Milliseconds(), 10),
			fmt.Sprintf("%.1f", result.Memory),
			strconv.Itoa(result.CpuPercentage),
			resultTypes[result.Result],
			bestCost,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("cannot write CSV record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseBestCost(output string) (int, error) {
	for _, line := range strings.Split(output, "\n") {
		if value, ok := strings.CutPrefix(line, "Best cost: "); ok {
			return strconv.Atoi(strings.TrimSpace(value))
		}
	}
	return 0, errors.New("best cost not reported")
}

func parseDurationLine(line string) (time.Duration, error) {
	_, durationStr, ok := strings.Cut(line, "(h:mm:ss or m:ss):")
	if !ok {
		return 0, fmt.Errorf("unexpected wall clock line: %v", line)
	}
	return parseDuration(strings.TrimSpace(durationStr))
}

// parseDuration reads the h:mm:ss.cc or m:ss.cc format of GNU time.
func parseDuration(durationStr string) (time.Duration, error) {
	parts := strings.Split(durationStr, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("unexpected duration format: %v", durationStr)
	}
	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected duration format: %v", durationStr)
	}
	duration := time.Duration(seconds * float64(time.Second)).Round(10 * time.Millisecond)
	for i, unit := range []time.Duration{time.Minute, time.Hour}[:len(parts)-1] {
		value, err := strconv.Atoi(parts[len(parts)-2-i])
		if err != nil {
			return 0, fmt.Errorf("unexpected duration format: %v", durationStr)
		}
		duration += time.Duration(value) * unit
	}
	return duration, nil
}

func parseMemoryLine(line string) (float64, error) {
	_, memoryStr, _ := strings.Cut(line, ":")
	kilobytes, err := strconv.ParseFloat(strings.TrimSpace(memoryStr), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected memory line: %v", line)
	}
	return kilobytes / MB, nil
}

func parseCpuPercentageLine(line string) (int, error) {
	_, percentageStr, _ := strings.Cut(line, ":")
	percentage, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(percentageStr), "%"))
	if err != nil {
		return 0, fmt.Errorf("unexpected cpu line: %v", line)
	}
	return percentage, nil
}
