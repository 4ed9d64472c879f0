package main

import (
	"fmt"
	"log"
	"reactorcore/pkg/client"
	"reactorcore/pkg/geom"
	"time"
)

func main() {
	fmt.Println("Connecting to reactor core...")
	cli, err := client.Dial("localhost:9090")
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer cli.Close()

	steps := []string{
		"on x=10..12,y=10..12,z=10..12",
		"on x=11..13,y=11..13,z=11..13",
		"off x=9..11,y=9..11,z=9..11",
		"on x=10..10,y=10..10,z=10..10",
	}
	for _, line := range steps {
		start := time.Now()
		if err := cli.Step(line); err != nil {
			log.Fatalf("Step %q failed: %v", line, err)
		}
		fmt.Printf("Applied %s (%v)\n", line, time.Since(start))
	}

	inRegion, total, err := cli.CountInit()
	if err != nil {
		log.Fatalf("Count failed: %v", err)
	}
	fmt.Printf("Lit cells: %d in init region, %d total\n", inRegion, total)

	on, err := cli.Probe(geom.Point{X: 10, Y: 10, Z: 10})
	if err != nil {
		log.Fatalf("Probe failed: %v", err)
	}
	fmt.Printf("Cell 10,10,10 on=%v\n", on)
}
