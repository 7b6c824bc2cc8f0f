// Command zkllm-ticketgen is an interactive wizard that generates a
// dev-mode ticket pool file in the exact JSON shape ticket.PoolSource
// loads. It exists for local development against a gateway running in dev
// mode; it performs no real authorization.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/advatar/zk-llm-gateway-go/pkg/ticket"
	"github.com/advatar/zk-llm-gateway-go/pkg/tokenclass"
)

var (
	bannerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	infoStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Println(bannerStyle.Render("zkllm-ticketgen"))
	fmt.Println(infoStyle.Render("Generates a dev-mode ticket pool file for a gateway running in dev mode."))
	fmt.Println()

	var (
		outPath        string
		selectedNames  []string
		countPerClassS string
	)

	classOptions := make([]huh.Option[string], 0, len(tokenclass.All()))
	for _, c := range tokenclass.All() {
		classOptions = append(classOptions, huh.NewOption(c.String(), c.String()))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Output file path").
				Value(&outPath).
				Placeholder("./tickets.json").
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("a path is required")
					}
					return nil
				}),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Size classes to include").
				Options(classOptions...).
				Value(&selectedNames),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Tickets per class").
				Value(&countPerClassS).
				Placeholder("10").
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n <= 0 {
						return fmt.Errorf("enter a positive integer")
					}
					return nil
				}),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("wizard cancelled: %w", err)
	}

	if outPath == "" {
		outPath = "./tickets.json"
	}
	if len(selectedNames) == 0 {
		return fmt.Errorf("no size classes selected")
	}
	countPerClass, err := strconv.Atoi(countPerClassS)
	if err != nil || countPerClass <= 0 {
		return fmt.Errorf("invalid ticket count: %s", countPerClassS)
	}

	tickets, err := generateTickets(selectedNames, countPerClass)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(tickets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ticket pool: %w", err)
	}
	if err := os.WriteFile(outPath, data, 0o600); err != nil {
		return fmt.Errorf("write ticket pool: %w", err)
	}

	fmt.Println()
	fmt.Println(bannerStyle.Render(fmt.Sprintf("Wrote %d tickets across %d classes to %s", len(tickets), len(selectedNames), outPath)))
	return nil
}

func generateTickets(classNames []string, countPerClass int) ([]ticket.Ticket, error) {
	var out []ticket.Ticket

	for _, name := range classNames {
		class, err := tokenclass.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("parse class %q: %w", name, err)
		}

		for i := 0; i < countPerClass; i++ {
			nullifier := make([]byte, 32)
			if _, err := io.ReadFull(rand.Reader, nullifier); err != nil {
				return nil, fmt.Errorf("generate nullifier: %w", err)
			}

			out = append(out, ticket.Ticket{
				Nullifier:      base64.StdEncoding.EncodeToString(nullifier),
				CommitmentRoot: base64.StdEncoding.EncodeToString(make([]byte, 32)),
				TokenClass:     class.String(),
				Proof:          "",
			})
		}
	}

	return out, nil
}
