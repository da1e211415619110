// utils/safelog.go
// Masks personal and financial data in log output when running in
// production. The masking is installed as a logrus hook so every log line
// goes through it, including fields.
package utils

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	// Amounts with a currency marker
	amountWithCurrencyRegex = regexp.MustCompile(`(?:\b\d+(?:[.,]\d{1,2})?\s*(?:€|EUR|CHF|GBP|USD|INR|£|\$|₹)\b)|(?:(?:₹|\$|€|£)\s*\d+(?:[.,]\d{1,2})?)`)

	cardRegex = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)

	uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// Field names whose values are always hidden in production.
var sensitiveFields = map[string]bool{
	"amount":         true,
	"total":          true,
	"monthly_budget": true,
	"archived_spend": true,
	"notes":          true,
	"email":          true,
}

// MaskString hides emails, card numbers, amounts with a currency and
// shortens UUIDs.
func MaskString(input string) string {
	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = cardRegex.ReplaceAllString(result, "****-****-****-****")
	result = amountWithCurrencyRegex.ReplaceAllString(result, "***")
	return uuidRegex.ReplaceAllStringFunc(result, func(id string) string {
		return id[:8] + "..."
	})
}

// MaskID keeps the first 8 characters of an id.
func MaskID(id string) string {
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

// MaskingHook rewrites entries before they are formatted. It is a no-op
// unless Enabled.
type MaskingHook struct {
	Enabled bool
}

func NewMaskingHook(production bool) *MaskingHook {
	return &MaskingHook{Enabled: production}
}

func (h *MaskingHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *MaskingHook) Fire(entry *logrus.Entry) error {
	if !h.Enabled {
		return nil
	}
	entry.Message = MaskString(entry.Message)
	for k, v := range entry.Data {
		if sensitiveFields[k] {
			entry.Data[k] = "***"
			continue
		}
		switch val := v.(type) {
		case string:
			entry.Data[k] = MaskString(val)
		case error:
			entry.Data[k] = MaskString(val.Error())
		case decimal.Decimal:
			entry.Data[k] = "***"
		}
	}
	return nil
}

// LogLedgerAction logs a write to the ledger. Amounts go in fields so the
// hook can hide them.
func LogLedgerAction(log logrus.FieldLogger, action string, fields logrus.Fields) {
	log.WithField("component", "ledger").WithFields(fields).Info(action)
}

// LogAIAnalysis logs an AI call without its prompt or answer.
func LogAIAnalysis(log logrus.FieldLogger, action, provider string, itemCount int, err error) {
	entry := log.WithFields(logrus.Fields{
		"component": "ai",
		"provider":  provider,
		"items":     itemCount,
	})
	if err != nil {
		entry.WithError(err).Warn(action)
		return
	}
	entry.Info(action)
}

// LogStartup logs how the application was configured.
func LogStartup(log logrus.FieldLogger, appName, version, port, backend, aiProvider string, production bool) {
	mode := "development"
	if production {
		mode = "production"
	}
	log.WithFields(logrus.Fields{
		"version":     version,
		"mode":        mode,
		"port":        port,
		"backend":     backend,
		"ai_provider": aiProvider,
	}).Info(fmt.Sprintf("%s starting", appName))
	if production {
		log.Info("Production mode: sensitive data will be masked in logs")
	}
}
