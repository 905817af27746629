// Command healthcheck asks a running server's gRPC health service whether it
// is serving. It exits non-zero otherwise, for use as a container health check.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"warehouse-system/internal/gateway/clients"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC address of the server")
	service := flag.String("service", "", "service name to check, empty for the whole server")
	timeout := flag.Duration("timeout", 5*time.Second, "check timeout")
	flag.Parse()

	client, err := clients.NewHealthClient(*addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	serving, err := client.Serving(ctx, *service)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if !serving {
		fmt.Println("NOT_SERVING")
		os.Exit(1)
	}
	fmt.Println("SERVING")
}
