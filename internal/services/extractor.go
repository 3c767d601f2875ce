package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/silverstate/nvsos-api/internal/models"
	"github.com/sirupsen/logrus"
)

const officerTableSelector = "table#grid_principalList"

// officerMinCells is the minimum cell count for a qualifying officer row.
const officerMinCells = 5

// section tracks which part of the detail page the row loop is in. The page
// reuses label text ("Status", "NV Business ID") across the entity and
// registered-agent panels without structural scoping, so ambiguous labels
// dispatch on this state. The state flips to the agent section when the
// agent-name label is seen.
type section int

const (
	inEntitySection section = iota
	inAgentSection
)

// extraction carries the in-progress record and parser state through the
// row-processing loop.
type extraction struct {
	record  *models.EntityRecord
	section section
}

// labelRule maps a label substring to a field setter. Rules are evaluated
// top to bottom and the first match wins, so labels that contain a shorter
// rule's text ("Entity Status" vs "Status", "CRA Agent Entity Type" vs
// "Entity Type") must come first.
type labelRule struct {
	match string
	apply func(ex *extraction, value string)
}

// Extractor converts a rendered entity detail page into an EntityRecord.
type Extractor struct {
	rules  []labelRule
	logger *logrus.Logger
	now    func() time.Time
}

// NewExtractor creates a new Extractor
func NewExtractor(logger *logrus.Logger) *Extractor {
	return &Extractor{
		rules:  entityLabelRules(),
		logger: logger,
		now:    time.Now,
	}
}

func entityLabelRules() []labelRule {
	return []labelRule{
		{"Entity Name", func(ex *extraction, v string) {
			ex.setEntity(models.FieldEntityName, v)
		}},
		{"Entity Number", func(ex *extraction, v string) {
			ex.setEntity(models.FieldEntityNumber, v)
		}},
		{"Entity Status", func(ex *extraction, v string) {
			ex.setEntity(models.FieldEntityStatus, v)
		}},
		{"CRA Agent Entity Type", func(ex *extraction, v string) {
			ex.setAgentOptional(models.FieldAgentCRAEntityType, v)
		}},
		{"Registered Agent Type", func(ex *extraction, v string) {
			ex.setAgent(models.FieldAgentType, v)
		}},
		{"Entity Type", func(ex *extraction, v string) {
			ex.setEntity(models.FieldEntityType, v)
		}},
		{"Formation Date", func(ex *extraction, v string) {
			ex.setEntity(models.FieldFormationDate, v)
		}},
		{"Termination Date", func(ex *extraction, v string) {
			ex.setEntityOptional(models.FieldTerminationDate, v)
		}},
		{"Annual Report Due Date", func(ex *extraction, v string) {
			ex.setEntity(models.FieldAnnualReportDueDate, v)
		}},
		{"Compliance Hold", func(ex *extraction, v string) {
			ex.setEntityOptional(models.FieldComplianceHold, v)
		}},
		{"Name of Individual or Legal Entity", func(ex *extraction, v string) {
			ex.setAgent(models.FieldAgentName, v)
			ex.section = inAgentSection
		}},
		{"NV Business ID", func(ex *extraction, v string) {
			if ex.section == inAgentSection {
				ex.setAgent(models.FieldAgentNVBusinessID, v)
				return
			}
			// Keep the first value seen for the entity section.
			if _, exists := ex.record.EntityInformation[models.FieldNVBusinessID]; !exists {
				ex.setEntity(models.FieldNVBusinessID, v)
			}
		}},
		{"Status", func(ex *extraction, v string) {
			if ex.section == inAgentSection {
				ex.setAgent(models.FieldAgentStatus, v)
				return
			}
			ex.setEntity(models.FieldEntityStatus, v)
		}},
		{"Office or Position", func(ex *extraction, v string) {
			ex.setAgentOptional(models.FieldAgentOfficePosition, v)
		}},
		{"Jurisdiction", func(ex *extraction, v string) {
			ex.setAgentOptional(models.FieldAgentJurisdiction, v)
		}},
		{"Street Address", func(ex *extraction, v string) {
			ex.setAgent(models.FieldAgentStreetAddress, v)
		}},
		{"Mailing Address", func(ex *extraction, v string) {
			ex.setAgentOptional(models.FieldAgentMailingAddress, v)
		}},
	}
}

func (ex *extraction) setEntity(key, value string) {
	ex.record.EntityInformation[key] = &value
}

// setEntityOptional stores an explicit null when the document confirms the
// field but leaves it empty.
func (ex *extraction) setEntityOptional(key, value string) {
	if value == "" {
		ex.record.EntityInformation[key] = nil
		return
	}
	ex.record.EntityInformation[key] = &value
}

func (ex *extraction) setAgent(key, value string) {
	ex.record.RegisteredAgent[key] = &value
}

func (ex *extraction) setAgentOptional(key, value string) {
	if value == "" {
		ex.record.RegisteredAgent[key] = nil
		return
	}
	ex.record.RegisteredAgent[key] = &value
}

// Extract parses the detail page HTML into an EntityRecord. It returns an
// error only when the document cannot be processed at all; unmatched labels
// or a missing officer table still produce a successful record.
func (e *Extractor) Extract(html string) (*models.EntityRecord, error) {
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("empty document")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		e.logger.WithError(err).Error("Failed to parse detail page HTML")
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	record := models.NewEntityRecord()
	record.Metadata.ScrapedAt = e.now().Format(models.ScrapedAtLayout)

	ex := &extraction{record: record, section: inEntitySection}

	e.extractPanels(doc, ex)
	e.extractOfficers(doc, record)

	e.logger.WithFields(logrus.Fields{
		"entity_fields": len(record.EntityInformation),
		"agent_fields":  len(record.RegisteredAgent),
		"officers":      len(record.Officers),
	}).Debug("Entity extraction completed")

	return record, nil
}

// extractPanels walks every label/value row group and dispatches each
// normalized label through the rule table.
func (e *Extractor) extractPanels(doc *goquery.Document, ex *extraction) {
	doc.Find("div.panel-body").Each(func(i int, panel *goquery.Selection) {
		panel.Find("div.row.form-group").Each(func(j int, row *goquery.Selection) {
			row.Find("label.control-label").Each(func(k int, label *goquery.Selection) {
				labelText := normalizeLabel(label.Text())
				if labelText == "" {
					return
				}

				// The value lives in the next sibling element of
				// the label's parent container.
				valueDiv := label.Parent().Next()
				if valueDiv.Length() == 0 {
					return
				}
				value := strings.TrimSpace(valueDiv.Text())

				for _, rule := range e.rules {
					if strings.Contains(labelText, rule.match) {
						rule.apply(ex, value)
						return
					}
				}
			})
		})
	})
}

// extractOfficers maps qualifying rows of the officer table positionally.
// Rows with fewer than five cells are skipped; source order is preserved.
func (e *Extractor) extractOfficers(doc *goquery.Document, record *models.EntityRecord) {
	doc.Find(officerTableSelector + " tbody tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < officerMinCells {
			return
		}

		record.Officers = append(record.Officers, models.OfficerRecord{
			Title:       strings.TrimSpace(cells.Eq(0).Text()),
			Name:        strings.TrimSpace(cells.Eq(1).Text()),
			Address:     strings.TrimSpace(cells.Eq(2).Text()),
			LastUpdated: strings.TrimSpace(cells.Eq(3).Text()),
			Status:      strings.TrimSpace(cells.Eq(4).Text()),
		})
	})
}

// normalizeLabel strips the trailing colon and surrounding whitespace.
func normalizeLabel(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, ":", ""))
}
