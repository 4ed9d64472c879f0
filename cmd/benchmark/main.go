package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"reactorcore/pkg/protocol"
	"strings"
	"time"
)

// stepLine returns a small, shifting cube so that consecutive steps overlap
// and both states occur.
func stepLine(i int) string {
	state := "on"
	if i%4 == 3 {
		state = "off"
	}
	x := (i * 7) % 200
	y := (i * 13) % 200
	z := (i * 17) % 200
	return fmt.Sprintf("%s x=%d..%d,y=%d..%d,z=%d..%d", state, x-100, x-90, y-100, y-90, z-100, z-90)
}

func main() {
	httpAddr := flag.String("http", "http://localhost:8080", "HTTP API base URL")
	tcpAddr := flag.String("tcp", "localhost:9090", "TCP server address")
	nReq := flag.Int("n", 5000, "Number of steps per run")
	flag.Parse()

	fmt.Printf("Reactor Protocol Benchmark (N=%d)\n", *nReq)
	fmt.Printf("  HTTP=%s  TCP=%s\n", *httpAddr, *tcpAddr)
	fmt.Println("---------------------------------------------------")

	fmt.Println(">> Starting HTTP Benchmark (text over HTTP 1.1)...")
	httpDuration := runHTTPBenchmark(*httpAddr, *nReq)
	fmt.Printf("   HTTP Time: %v | Steps/s: %.0f\n\n", httpDuration, float64(*nReq)/httpDuration.Seconds())

	fmt.Println(">> Starting TCP Benchmark (Binary Protocol)...")
	tcpDuration := runTCPBenchmark(*tcpAddr, *nReq)
	fmt.Printf("   TCP  Time: %v | Steps/s: %.0f\n", tcpDuration, float64(*nReq)/tcpDuration.Seconds())

	fmt.Println("---------------------------------------------------")
	speedup := httpDuration.Seconds() / tcpDuration.Seconds()
	fmt.Printf("Conclusion: TCP is %.2fx faster than HTTP!\n", speedup)
}

func runHTTPBenchmark(httpAddr string, n int) time.Duration {
	start := time.Now()
	client := &http.Client{
		Transport: &http.Transport{
			MaxIdleConnsPerHost: 100,
		},
	}

	for i := 0; i < n; i++ {
		resp, err := client.Post(httpAddr+"/api/step", "text/plain", strings.NewReader(stepLine(i)))
		if err != nil {
			log.Fatalf("HTTP Req failed: %v", err)
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}
	return time.Since(start)
}

func runTCPBenchmark(addr string, n int) time.Duration {
	start := time.Now()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		log.Fatalf("TCP Connect failed: %v", err)
	}
	defer conn.Close()

	for i := 0; i < n; i++ {
		err := protocol.Encode(conn, protocol.OpStep, nil, []byte(stepLine(i)))
		if err != nil {
			log.Fatalf("TCP Write failed: %v", err)
		}

		resp, err := protocol.Decode(conn)
		if err != nil {
			log.Fatalf("TCP Read failed: %v", err)
		}
		if resp.Op == protocol.RespErr {
			log.Fatalf("TCP Step rejected: %s", resp.Value)
		}
	}

	return time.Since(start)
}
