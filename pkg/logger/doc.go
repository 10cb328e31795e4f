// Package logger provides the structured logging interface used across clipharvest.
//
// It wraps zerolog with a small interface so components depend on Logger
// rather than on a concrete backend:
//
//	cfg := &config.LoggingConfig{Level: "info", File: "logs/harvest.log"}
//	if err := logger.Initialize(cfg); err != nil {
//	    return err
//	}
//
//	log := logger.GetLogger().WithField("platform", "youtube")
//	log.InfoWithFields("Harvest finished", map[string]interface{}{
//	    "collected": 120,
//	    "rounds":    14,
//	})
//
// Console output is colorized; set LoggingConfig.JSON for machine-readable
// lines. Tests use NewTestLogger to capture and assert on log calls.
package logger
