// Command scraper runs one Nevada entity acquisition and reports the result
// on stdout for the calling pipeline. It always emits a terminal record;
// the exit code tells the caller whether the acquisition succeeded.
package main

import (
	"context"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/silverstate/nvsos-api/internal/config"
	"github.com/silverstate/nvsos-api/internal/logger"
	"github.com/silverstate/nvsos-api/internal/models"
	"github.com/silverstate/nvsos-api/internal/report"
	"github.com/silverstate/nvsos-api/internal/services"
	"github.com/silverstate/nvsos-api/internal/utils"
	"github.com/sirupsen/logrus"
)

const defaultFileNumber = "E10281132020-8"

func main() {
	os.Exit(run())
}

// run holds the whole acquisition so deferred cleanup fires before the
// process exits with its status code.
func run() int {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Missing SOLVE_CAPTCHA_API_KEY fails here, before any browser work.
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	logger := logger.New(cfg.Log.Level, cfg.Log.Format)

	fileNumber := utils.CleanFileNumber(os.Getenv("FILE_NUMBER"))
	if fileNumber == "" {
		fileNumber = defaultFileNumber
	}

	requestID := os.Getenv("REQUEST_ID")
	if requestID == "" {
		requestID = "nevada-" + uuid.New().String()
	}

	logger.WithFields(logrus.Fields{
		"file_number": fileNumber,
		"request_id":  requestID,
	}).Info("Starting single-shot Nevada entity acquisition")

	container, err := services.NewContainer(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize services")
		return 1
	}
	defer container.Close()

	record := container.EntityService.GetEntity(context.Background(), fileNumber, requestID)

	path, err := report.WriteArtifact(cfg.Scraper.OutputDir, record)
	if err != nil {
		logger.WithError(err).Error("Failed to write result artifact")
	} else {
		logger.WithField("path", path).Info("Result artifact written")
	}

	if err := report.Emit(os.Stdout, record); err != nil {
		logger.WithError(err).Error("Failed to emit result to stdout")
	}

	logger.WithFields(logrus.Fields{
		"file_number":   fileNumber,
		"request_id":    requestID,
		"success":       record.Metadata.Success,
		"entity_name":   fieldOrEmpty(record.EntityInformation, models.FieldEntityName),
		"entity_status": fieldOrEmpty(record.EntityInformation, models.FieldEntityStatus),
		"officers":      len(record.Officers),
	}).Info("Acquisition finished")

	return exitCode(record)
}

// exitCode maps the terminal record to the process status the pipeline
// checks: zero only for a successful acquisition.
func exitCode(record *models.EntityRecord) int {
	if record == nil || !record.Metadata.Success {
		return 1
	}
	return 0
}

func fieldOrEmpty(section map[string]*string, key string) string {
	if ptr, ok := section[key]; ok && ptr != nil {
		return *ptr
	}
	return ""
}
