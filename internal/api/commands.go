package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/entities"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/repository"
	"github.com/CAESER-UOFM/CAESER-water-levels-monitoring-system-sub003/internal/usecases"
)

const (
	defaultMasterHours = 24
	maxMasterHours     = 24 * 31
	masterRowsShown    = 12
)

const helpText = "Available commands:\n" +
	"/start - Start the bot\n" +
	"/wells - Show the list of monitoring wells\n" +
	"/well [number] - Show information for a specific well\n" +
	"/baro - Show barologgers and master baro coverage\n" +
	"/master [hours] - Show recent master baro readings (default 24h)\n" +
	"/help - Show this help message"

// WellService is what the bot needs from the well use case
type WellService interface {
	ListWells(ctx context.Context) ([]entities.Well, error)
	GetWellSummary(ctx context.Context, wellNumber string) (*usecases.WellSummary, error)
}

// BaroService is what the bot needs from the barologger use case
type BaroService interface {
	ListBarologgers(ctx context.Context) ([]entities.Barologger, error)
	MasterBaroCoverage(ctx context.Context) (*usecases.Coverage, error)
	ListMasterBaro(ctx context.Context, start, end time.Time) ([]entities.MasterBaroReading, error)
}

// CommandHandler turns chat commands into reply text
type CommandHandler struct {
	wells WellService
	baros BaroService
	now   func() time.Time
}

// NewCommandHandler creates a handler over the given use cases
func NewCommandHandler(wells WellService, baros BaroService) *CommandHandler {
	return &CommandHandler{wells: wells, baros: baros, now: time.Now}
}

// Handle answers a command such as "well" with its arguments
func (h *CommandHandler) Handle(ctx context.Context, command, args string) string {
	args = strings.TrimSpace(args)
	switch command {
	case "start":
		return "Welcome to the water levels bot! Use /wells to see the monitoring wells or /help for more information."
	case "help":
		return helpText
	case "wells":
		return h.wellList(ctx)
	case "well":
		return h.wellInfo(ctx, args)
	case "baro":
		return h.baroStatus(ctx)
	case "master":
		return h.masterReadings(ctx, args)
	default:
		log.Printf("Received unknown command /%s", command)
		return "Unknown command. Use /help to see available commands."
	}
}

// HandleText answers a plain message. A bare well number is treated as /well.
func (h *CommandHandler) HandleText(ctx context.Context, text string) string {
	text = strings.TrimSpace(text)
	if text != "" && !strings.ContainsAny(text, " \n") {
		summary, err := h.wells.GetWellSummary(ctx, text)
		if err == nil {
			return usecases.FormatWellInfo(summary)
		}
	}
	return "I don't understand. Use /help to see available commands."
}

func (h *CommandHandler) wellList(ctx context.Context) string {
	wells, err := h.wells.ListWells(ctx)
	if err != nil {
		log.Printf("Error fetching wells: %v", err)
		return "Error fetching well data. Please try again later."
	}
	return usecases.FormatWellList(wells)
}

func (h *CommandHandler) wellInfo(ctx context.Context, wellNumber string) string {
	if wellNumber == "" {
		return "Please specify a well number. Example: /well SB-12"
	}
	summary, err := h.wells.GetWellSummary(ctx, wellNumber)
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Sprintf("No well '%s'. Use /wells to see the available wells.", wellNumber)
	}
	if err != nil {
		log.Printf("Error fetching well %s: %v", wellNumber, err)
		return "Error fetching well data. Please try again later."
	}
	return usecases.FormatWellInfo(summary)
}

func (h *CommandHandler) baroStatus(ctx context.Context) string {
	baros, err := h.baros.ListBarologgers(ctx)
	if err != nil {
		log.Printf("Error fetching barologgers: %v", err)
		return "Error fetching barologger data. Please try again later."
	}
	coverage, err := h.baros.MasterBaroCoverage(ctx)
	if err != nil {
		log.Printf("Error fetching master baro coverage: %v", err)
		return "Error fetching barologger data. Please try again later."
	}
	return usecases.FormatBarologgerList(baros) + "\n\n" + usecases.FormatCoverage(coverage)
}

func (h *CommandHandler) masterReadings(ctx context.Context, args string) string {
	hours := defaultMasterHours
	if args != "" {
		n, err := strconv.Atoi(args)
		if err != nil || n < 1 || n > maxMasterHours {
			return fmt.Sprintf("Please give a number of hours between 1 and %d. Example: /master 48", maxMasterHours)
		}
		hours = n
	}

	end := h.now().UTC()
	start := end.Add(-time.Duration(hours) * time.Hour)
	rows, err := h.baros.ListMasterBaro(ctx, start, end)
	if err != nil {
		log.Printf("Error fetching master baro: %v", err)
		return "Error fetching master baro data. Please try again later."
	}
	if len(rows) == 0 {
		return fmt.Sprintf("No master baro readings in the last %d hours.", hours)
	}

	header := fmt.Sprintf("Master baro, last %d hours (%d readings", hours, len(rows))
	if len(rows) > masterRowsShown {
		header += fmt.Sprintf(", latest %d shown", masterRowsShown)
	}
	return header + "):\n\n" + usecases.FormatMasterBaroReadings(rows, masterRowsShown)
}
