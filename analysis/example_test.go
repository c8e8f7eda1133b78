package analysis_test

import (
	"fmt"

	"github.com/cwbudde/algo-djmix/analysis"
)

func ExampleHarmonicScore() {
	fmt.Println(analysis.HarmonicScore("8A", "8B"))
	fmt.Println(analysis.HarmonicScore("8A", "9A"))
	fmt.Println(analysis.HarmonicScore("8A", "3A"))
	// Output:
	// 90
	// 80
	// 10
}

func ExampleCamelotCode() {
	fmt.Println(analysis.KeyName(9, analysis.Minor), analysis.CamelotCode(9, analysis.Minor))
	// Output: Am 8A
}
