package mip

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// cbcSolver runs the COIN-OR CBC executable on an LP file. CBC exposes no callbacks across
// process boundaries, so the incumbent and node hooks run once on the final solution and cuts are not separated.
type cbcSolver struct {
	path string
}

func NewCbcSolver() (Solver, error) {
	path, err := getExecutablePath("cbcPath")
	if err != nil {
		return nil, err
	}
	return &cbcSolver{path: path}, nil
}

func (backend *cbcSolver) Solve(ctx context.Context, model *Model, params Params, callbacks Callbacks) (Solution, error) {
	directory, err := os.MkdirTemp("", "cbc")
	if err != nil {
		return Solution{}, fmt.Errorf("cannot create working directory: %w", err)
	}
	defer os.RemoveAll(directory)

	lpFile := filepath.Join(directory, "model.lp")
	solutionFile := filepath.Join(directory, "solution.txt")
	if err := os.WriteFile(lpFile, []byte(model.ToLP()), 0o644); err != nil {
		return Solution{}, fmt.Errorf("cannot write lp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, backend.path, cbcArguments(lpFile, solutionFile, params)...)
	var stdOut, stdErr bytes.Buffer
	cmd.Stdout = &stdOut
	cmd.Stderr = &stdErr
	if err := cmd.Run(); err != nil {
		return Solution{}, fmt.Errorf("an error occurred during cbc execution: %v : %v", err.Error(), stdErr.String())
	}

	output, err := os.ReadFile(solutionFile)
	if err != nil {
		return Solution{}, fmt.Errorf("cbc produced no solution file: %w", err)
	}
	solution, err := parseCbcSolution(model, string(output))
	if err != nil {
		return Solution{}, err
	}
	notify(callbacks, solution)
	return solution, nil
}

func cbcArguments(lpFile, solutionFile string, params Params) []string {
	arguments := []string{lpFile}
	if params.TimeLimit > 0 {
		arguments = append(arguments, "sec", strconv.Itoa(int(math.Ceil(params.TimeLimit.Seconds()))))
	}
	if params.NodeLimit > 0 {
		arguments = append(arguments, "maxNodes", strconv.Itoa(params.NodeLimit))
	}
	if params.Cutoff != nil {
		arguments = append(arguments, "cutoff", formatNumber(*params.Cutoff))
	}
	keys := lo.Keys(params.Options)
	slices.Sort(keys)
	for _, key := range keys {
		arguments = append(arguments, key, params.Options[key])
	}
	return append(arguments, "solve", "solu", solutionFile)
}

// parseCbcSolution reads a status line followed by "index name value reducedCost" lines. Omitted variables are zero.
func parseCbcSolution(model *Model, output string) (Solution, error) {
	scanner := bufio.NewScanner(strings.NewReader(output))
	if !scanner.Scan() {
		return Solution{}, fmt.Errorf("empty cbc solution")
	}
	header := strings.ToLower(scanner.Text())

	names := make(map[string]Var, model.NumVars())
	for i := range model.NumVars() {
		names[model.LPName(Var(i))] = Var(i)
	}
	values := make([]float64, model.NumVars())
	assigned := false
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == "**" {
			fields = fields[1:]
		}
		if len(fields) < 3 {
			continue
		}
		v, ok := names[fields[1]]
		if !ok {
			return Solution{}, fmt.Errorf("unknown variable \"%v\" in cbc solution", fields[1])
		}
		value, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return Solution{}, fmt.Errorf("invalid value in cbc solution: %w", err)
		}
		values[v] = value
		assigned = true
	}

	solution := Solution{BestBound: unboundedBelow()}
	switch {
	case strings.HasPrefix(header, "optimal"):
		solution.Status = Optimal
	case strings.Contains(header, "infeasible"):
		return Solution{Status: Infeasible, BestBound: unboundedBelow()}, nil
	case strings.Contains(header, "unbounded"):
		return Solution{Status: Unbounded, BestBound: unboundedBelow()}, nil
	case strings.Contains(header, "objective value") && assigned:
		solution.Status = Feasible
	default:
		return Solution{Status: Unknown, BestBound: unboundedBelow()}, nil
	}
	solution.Values = values
	solution.Objective = model.ObjectiveValue(values)
	if solution.Status == Optimal {
		solution.BestBound = solution.Objective
	}
	return solution, nil
}
