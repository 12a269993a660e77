// Command demo runs the question pipeline from the terminal, streaming the
// same progress messages the WebSocket clients see.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"trek-assistant-be/internal/bootstrap"
	"trek-assistant-be/internal/config"

	"github.com/fatih/color"
)

func main() {
	question := "Is Kedarkantha trek safe in December?"
	if len(os.Args) > 1 {
		question = strings.Join(os.Args[1:], " ")
	}

	cfg := config.Load()
	container := bootstrap.NewContainer(cfg)
	defer container.Logger.Sync()

	bold := color.New(color.Bold)
	progress := color.New(color.FgCyan)
	warn := color.New(color.FgYellow)

	bold.Printf("Q: %s\n\n", question)

	result := container.Orchestrator.Run(context.Background(), question, func(msg string) {
		progress.Printf("  … %s\n", msg)
	})

	fmt.Println()
	if result.Entities.Trail != "" {
		fmt.Printf("Trail:   %s (intent: %s)\n", result.Entities.Trail, result.Entities.Intent)
	}
	if result.TrailStats != nil {
		fmt.Printf("Stats:   %s, %s gain, %s, %s\n",
			result.TrailStats.Distance,
			result.TrailStats.ElevationGain,
			result.TrailStats.Duration,
			result.TrailStats.Difficulty,
		)
	}
	if result.Weather != nil {
		fmt.Printf("Weather: %s\n", result.Weather.Summary)
		for _, w := range result.Weather.Warnings {
			warn.Printf("         ! %s\n", w)
		}
	}

	fmt.Println()
	bold.Println("Answer:")
	fmt.Println(result.Answer)

	for _, sr := range result.StageResults {
		if sr.Err != nil {
			warn.Printf("\nstage %s failed: %v\n", sr.Stage, sr.Err)
		}
	}
}
