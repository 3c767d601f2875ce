package models

import "time"

// Source is stamped into every record's metadata.
const Source = "Nevada Secretary of State"

// ScrapedAtLayout is the timestamp format used in record metadata.
const ScrapedAtLayout = "2006-01-02 15:04:05"

// Field keys for the entity information section.
const (
	FieldEntityName          = "entity_name"
	FieldEntityNumber        = "entity_number"
	FieldEntityType          = "entity_type"
	FieldEntityStatus        = "entity_status"
	FieldFormationDate       = "formation_date"
	FieldNVBusinessID        = "nv_business_id"
	FieldTerminationDate     = "termination_date"
	FieldAnnualReportDueDate = "annual_report_due_date"
	FieldComplianceHold      = "compliance_hold"
)

// Field keys for the registered agent section.
const (
	FieldAgentName           = "name"
	FieldAgentStatus         = "status"
	FieldAgentCRAEntityType  = "cra_agent_entity_type"
	FieldAgentType           = "registered_agent_type"
	FieldAgentNVBusinessID   = "nv_business_id"
	FieldAgentOfficePosition = "office_or_position"
	FieldAgentJurisdiction   = "jurisdiction"
	FieldAgentStreetAddress  = "street_address"
	FieldAgentMailingAddress = "mailing_address"
)

// EntityRecord is the structured result of one acquisition. The section maps
// are sparse: only labels found in the document appear as keys. A nil value
// pointer marshals to an explicit JSON null for optional fields the document
// confirmed but left empty.
type EntityRecord struct {
	EntityInformation map[string]*string `json:"entity_information"`
	RegisteredAgent   map[string]*string `json:"registered_agent"`
	Officers          []OfficerRecord    `json:"officers"`
	Metadata          Metadata           `json:"metadata"`
}

// OfficerRecord is one row of the officer table, in source order.
type OfficerRecord struct {
	Title       string `json:"title"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	LastUpdated string `json:"last_updated"`
	Status      string `json:"status"`
}

// Metadata describes how and when the record was obtained. Error is set only
// when Success is false.
type Metadata struct {
	Source             string `json:"source"`
	ScrapedAt          string `json:"scraped_at"`
	Success            bool   `json:"success"`
	FileNumberSearched string `json:"file_number_searched,omitempty"`
	RequestID          string `json:"request_id,omitempty"`
	Error              string `json:"error,omitempty"`
	Cache              bool   `json:"cache,omitempty"`
}

// NewEntityRecord returns a record with initialized (empty, non-nil) sections
// and stamped metadata.
func NewEntityRecord() *EntityRecord {
	return &EntityRecord{
		EntityInformation: make(map[string]*string),
		RegisteredAgent:   make(map[string]*string),
		Officers:          []OfficerRecord{},
		Metadata: Metadata{
			Source:    Source,
			ScrapedAt: time.Now().Format(ScrapedAtLayout),
			Success:   true,
		},
	}
}

// NewFailedRecord returns the terminal record for an attempt that raised a
// fatal error: empty sections, success=false and the error's description.
func NewFailedRecord(fileNumber, requestID string, err error) *EntityRecord {
	record := NewEntityRecord()
	record.Metadata.Success = false
	record.Metadata.FileNumberSearched = fileNumber
	record.Metadata.RequestID = requestID
	if err != nil {
		record.Metadata.Error = err.Error()
	}
	return record
}
