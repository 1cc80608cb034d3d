package usl_test

import (
	"fmt"
	"time"

	"github.com/alexshd/usl"
)

func ExampleFit() {
	points := [][2]float64{
		{1, 955.16}, {2, 1878.91}, {3, 2688.01}, {4, 3548.68},
		{5, 4315.54}, {6, 5130.43}, {7, 5931.37}, {8, 6531.08},
		{9, 7219.8}, {10, 7867.61}, {11, 8278.71}, {12, 8646.7},
		{13, 9047.84}, {14, 9426.55}, {15, 9645.37}, {16, 9897.24},
		{17, 10097.6}, {18, 10240.5}, {19, 10532.39}, {20, 10798.52},
		{21, 11151.43}, {22, 11518.63}, {23, 11806.0}, {24, 12089.37},
		{25, 12075.41}, {26, 12177.29}, {27, 12211.41}, {28, 12158.93},
		{29, 12155.27}, {30, 12118.04}, {31, 12140.4}, {32, 12074.39},
	}

	var ms []usl.Measurement
	for _, p := range points {
		m, err := usl.ConcurrencyAndThroughput(p[0], p[1])
		if err != nil {
			panic(err)
		}
		ms = append(ms, m)
	}

	model, err := usl.Fit(ms)
	if err != nil {
		panic(err)
	}
	n, _ := model.MaxConcurrency()
	x, _ := model.MaxThroughput()

	fmt.Printf("σ=%.6f κ=%.7f λ=%.4f\n", model.Sigma, model.Kappa, model.Lambda)
	fmt.Printf("max concurrency %d, max throughput %.2f\n", n, x)
	fmt.Println(model.Constraint())
	// Output:
	// σ=0.026716 κ=0.0007691 λ=995.6487
	// max concurrency 35, max throughput 12341.75
	// contention
}

func ExampleConcurrencyAndLatency() {
	m, err := usl.ConcurrencyAndLatency(3, 600*time.Millisecond)
	if err != nil {
		panic(err)
	}
	fmt.Println(m)
	// Output: N=3 X=5/s R=600ms
}
