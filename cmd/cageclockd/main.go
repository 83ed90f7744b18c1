// Command cageclockd runs the CageClock daemon in the foreground. It is the
// same runtime as `cageclock daemon`, packaged for service managers.
package main

import (
	"context"
	"log"

	"cageclock/internal/config"
	"cageclock/internal/daemonrun"
)

func main() {
	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := daemonrun.Run(context.Background(), cfg, daemonrun.Options{}); err != nil {
		log.Fatalf("cageclockd: %v", err)
	}
}
