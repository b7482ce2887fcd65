// Command inspect renders a read-only summary of the truth log tail.
// It never mutates the logs and exits zero unless a log file exists but
// cannot be read.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"signal-truth/internal/inspect"
)

func main() {
	logsDir := flag.String("logs-dir", "./logs", "Directory holding the truth log partitions")
	count := flag.Int("count", 20, "Number of newest records to show (0 for all)")
	logType := flag.String("type", "both", "Partition to read: forex, crypto, or both")

	flag.Parse()

	logger := log.New(os.Stderr, "[inspect] ", 0)

	records, err := inspect.Load(*logsDir, *logType, *count)
	if err != nil {
		logger.Printf("read truth log: %v", err)
		os.Exit(1)
	}

	if len(records) == 0 {
		fmt.Println("no readable log")
		return
	}

	fmt.Print(inspect.Render(records))
}
