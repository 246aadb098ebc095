package main

import (
	"fmt"
	"log"

	"github.com/bartolsthoorn/gosimplex/simplex"
)

func main() {
	// Minimize: x + y
	// Subject to: x + y >= 2, 0 <= x,y <= 5
	model := simplex.Model{
		ColCosts: []float64{1.0, 1.0},
		ColLower: []float64{0.0, 0.0},
		ColUpper: []float64{5.0, 5.0},
		ColNames: []string{"x", "y"},
	}
	model.AddGeRow([]float64{1.0, 1.0}, 2.0) // x + y >= 2

	solution, err := model.Solve(
		simplex.WithOutput(true),
		simplex.WithPricing("steepest-edge"),
	)
	if err != nil {
		log.Fatal(err)
	}

	if solution.IsOptimal() {
		fmt.Printf("x = %.2f, y = %.2f\n", solution.ColValues[0], solution.ColValues[1])
		fmt.Printf("Objective = %.2f after %d iterations\n", solution.Objective, solution.Iterations)
		fmt.Printf("Row duals = %v\n", solution.RowDuals)
	} else {
		fmt.Println("Status:", solution.Status)
	}
}
