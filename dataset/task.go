// Package dataset generates the synthetic two-task regression data shown by
// the demo.
//
// Every draw comes from one explicitly passed rand.Source, consumed in a
// fixed order, so identical parameters and seed give bit-identical data.
package dataset

import (
	"fmt"
	"math"
)

// Task identifies one of the two related regression tasks.
type Task int

const (
	// Auxiliary is the cheap, related task. Its indicator is 0.
	Auxiliary Task = iota
	// Main is the task of interest. Its indicator is 1.
	Main
)

// NumTasks is the number of tasks a multitask model is built for.
const NumTasks = 2

// Tasks lists all tasks in indicator order.
var Tasks = [NumTasks]Task{Auxiliary, Main}

// Indicator returns the value of the task-indicator column for t.
func (t Task) Indicator() float64 {
	return float64(t)
}

func (t Task) String() string {
	switch t {
	case Auxiliary:
		return "auxiliary"
	case Main:
		return "main"
	default:
		return fmt.Sprintf("Task(%d)", int(t))
	}
}

// Func returns the latent ground-truth function of task. period only
// affects Main.
//
//	Main:      1.5·cos(period·x)² + 5·x²
//	Auxiliary: cos(5x)² + 3·(x−0.2)²
func Func(task Task, period float64) func(x float64) float64 {
	switch task {
	case Main:
		return func(x float64) float64 {
			c := math.Cos(period * x)
			return 1.5*c*c + 5*x*x
		}
	default:
		return func(x float64) float64 {
			c := math.Cos(5 * x)
			d := x - 0.2
			return c*c + 3*d*d
		}
	}
}

// Curve evaluates f at every point of xs.
func Curve(f func(float64) float64, xs []float64) []float64 {
	ys := make([]float64, len(xs))
	for i, x := range xs {
		ys[i] = f(x)
	}
	return ys
}
