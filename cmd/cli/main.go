package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"reactorcore/pkg/client"
	"reactorcore/pkg/geom"
	"reactorcore/pkg/instr"
	"sort"
	"strconv"
	"strings"
	"time"
)

const Prompt = "reactor> "

func main() {
	serverAddr := flag.String("addr", "localhost:9090", "Reactor TCP Server Address")
	flag.Parse()

	fmt.Printf("Reactor CLI (Target: %s)\n", *serverAddr)
	fmt.Println("Connecting...")

	cli, err := client.Dial(*serverAddr)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		fmt.Println("Tip: Ensure the server is running (e.g. go run cmd/server/main.go).")
		return
	}
	defer cli.Close()
	fmt.Println("Connected! Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "on", "off":
			handleStep(cli, line)
		case "count":
			handleCount(cli, parts)
		case "probe":
			handleProbe(cli, parts)
		case "reset":
			handleReset(cli)
		case "stats":
			handleStats(cli)
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

func handleStep(cli *client.Client, line string) {
	// Validate locally so typos are reported without a round trip.
	if _, err := instr.Parse(line); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	start := time.Now()
	err := cli.Step(line)
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
	} else {
		fmt.Printf("OK (%v)\n", duration)
	}
}

func handleCount(cli *client.Client, parts []string) {
	var (
		inRegion, total int64
		err             error
	)
	start := time.Now()
	if len(parts) < 2 {
		inRegion, total, err = cli.CountInit()
	} else {
		region, perr := instr.ParseBox(strings.Join(parts[1:], ""))
		if perr != nil {
			fmt.Printf("Error: %v\n", perr)
			return
		}
		inRegion, total, err = cli.Count(region)
	}
	duration := time.Since(start)

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("in region: %d, total: %d (%v)\n", inRegion, total, duration)
}

func handleProbe(cli *client.Client, parts []string) {
	if len(parts) < 4 {
		fmt.Println("Usage: probe <x> <y> <z>")
		return
	}

	var coords [3]int64
	for i := range coords {
		v, err := strconv.ParseInt(parts[i+1], 10, 64)
		if err != nil {
			fmt.Println("Error: Coordinates must be integers")
			return
		}
		coords[i] = v
	}

	on, err := cli.Probe(geom.Point{X: coords[0], Y: coords[1], Z: coords[2]})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	if on {
		fmt.Println("on")
	} else {
		fmt.Println("off")
	}
}

func handleReset(cli *client.Client) {
	if err := cli.Reset(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println("All cells off.")
}

func handleStats(cli *client.Client) {
	stats, err := cli.Stats()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-18s %v\n", k, stats[k])
	}
}

func printHelp() {
	fmt.Println(`
Commands:
  on x=a..b,y=c..d,z=e..f    Switch a cuboid on
  off x=a..b,y=c..d,z=e..f   Switch a cuboid off
  count [x=a..b,y=..,z=..]   Lit cells in a region (default: init region) and in total
  probe <x> <y> <z>          State of one cell
  reset                      Switch every cell off
  stats                      Reactor statistics
  exit                       Exit CLI
	`)
}
