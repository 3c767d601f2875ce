package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/silverstate/nvsos-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func labelRow(label, value string) string {
	return fmt.Sprintf(`<div class="row form-group">
		<div class="col-md-4"><label class="control-label">%s:</label></div>
		<div class="col-md-8">%s</div>
	</div>`, label, value)
}

func detailPage(rows ...string) string {
	return `<html><body><div class="panel-body">` + strings.Join(rows, "\n") + `</div>` + officerTable + `</body></html>`
}

const officerTable = `
<table id="grid_principalList">
  <tbody>
    <tr>
      <td>Manager</td><td>JANE DOE</td><td>100 MAIN ST, LAS VEGAS, NV 89101</td><td>01/15/2021</td><td>Active</td>
    </tr>
    <tr>
      <td colspan="2">No pagination row</td><td>ignored</td>
    </tr>
    <tr>
      <td>Managing Member</td><td>JOHN ROE</td><td>200 ELM ST, RENO, NV 89501</td><td>02/20/2022</td><td>Active</td><td>extra</td>
    </tr>
  </tbody>
</table>`

func fullDetailPage() string {
	return detailPage(
		labelRow("Entity Name", "SILVER STATE HOLDINGS LLC"),
		labelRow("Entity Number", "E10281132020-8"),
		labelRow("Entity Type", "Domestic Limited-Liability Company"),
		labelRow("Entity Status", "Active"),
		labelRow("Formation Date", "07/01/2020"),
		labelRow("NV Business ID", "NV20201234567"),
		labelRow("Termination Date", ""),
		labelRow("Annual Report Due Date", "07/31/2026"),
		labelRow("Compliance Hold", ""),
		labelRow("Registered Agent Type", "Commercial Registered Agent"),
		labelRow("CRA Agent Entity Type", "Corporation"),
		labelRow("Name of Individual or Legal Entity", "REGISTERED AGENTS INC"),
		labelRow("Status", "Active"),
		labelRow("NV Business ID", "NV19991111111"),
		labelRow("Street Address", "500 AGENT WAY, CARSON CITY, NV 89701"),
		labelRow("Mailing Address", ""),
		labelRow("Jurisdiction", "NEVADA"),
	)
}

func strValue(t *testing.T, section map[string]*string, key string) string {
	t.Helper()
	ptr, ok := section[key]
	require.True(t, ok, "missing key %q", key)
	require.NotNil(t, ptr, "key %q is null", key)
	return *ptr
}

func TestExtractFullDetailPage(t *testing.T) {
	e := NewExtractor(testLogger())

	record, err := e.Extract(fullDetailPage())
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.True(t, record.Metadata.Success)
	assert.Equal(t, models.Source, record.Metadata.Source)

	info := record.EntityInformation
	assert.Equal(t, "SILVER STATE HOLDINGS LLC", strValue(t, info, models.FieldEntityName))
	assert.Equal(t, "E10281132020-8", strValue(t, info, models.FieldEntityNumber))
	assert.Equal(t, "Domestic Limited-Liability Company", strValue(t, info, models.FieldEntityType))
	assert.Equal(t, "Active", strValue(t, info, models.FieldEntityStatus))
	assert.Equal(t, "07/01/2020", strValue(t, info, models.FieldFormationDate))
	assert.Equal(t, "NV20201234567", strValue(t, info, models.FieldNVBusinessID))
	assert.Equal(t, "07/31/2026", strValue(t, info, models.FieldAnnualReportDueDate))

	// Confirmed-but-empty optional fields are explicit nulls.
	terminationDate, ok := info[models.FieldTerminationDate]
	require.True(t, ok)
	assert.Nil(t, terminationDate)
	complianceHold, ok := info[models.FieldComplianceHold]
	require.True(t, ok)
	assert.Nil(t, complianceHold)

	agent := record.RegisteredAgent
	assert.Equal(t, "REGISTERED AGENTS INC", strValue(t, agent, models.FieldAgentName))
	assert.Equal(t, "Commercial Registered Agent", strValue(t, agent, models.FieldAgentType))
	assert.Equal(t, "Corporation", strValue(t, agent, models.FieldAgentCRAEntityType))
	assert.Equal(t, "Active", strValue(t, agent, models.FieldAgentStatus))
	assert.Equal(t, "NV19991111111", strValue(t, agent, models.FieldAgentNVBusinessID))
	assert.Equal(t, "500 AGENT WAY, CARSON CITY, NV 89701", strValue(t, agent, models.FieldAgentStreetAddress))
	assert.Equal(t, "NEVADA", strValue(t, agent, models.FieldAgentJurisdiction))
	mailing, ok := agent[models.FieldAgentMailingAddress]
	require.True(t, ok)
	assert.Nil(t, mailing)

	// Short rows are skipped, source order is preserved.
	require.Len(t, record.Officers, 2)
	assert.Equal(t, models.OfficerRecord{
		Title:       "Manager",
		Name:        "JANE DOE",
		Address:     "100 MAIN ST, LAS VEGAS, NV 89101",
		LastUpdated: "01/15/2021",
		Status:      "Active",
	}, record.Officers[0])
	assert.Equal(t, "Managing Member", record.Officers[1].Title)
	assert.Equal(t, "JOHN ROE", record.Officers[1].Name)
}

func TestExtractBareStatusBeforeAgentName(t *testing.T) {
	e := NewExtractor(testLogger())

	record, err := e.Extract(detailPage(labelRow("Status", "Default")))
	require.NoError(t, err)

	assert.Equal(t, "Default", strValue(t, record.EntityInformation, models.FieldEntityStatus))
	_, ok := record.RegisteredAgent[models.FieldAgentStatus]
	assert.False(t, ok)
}

func TestExtractStatusAfterAgentName(t *testing.T) {
	e := NewExtractor(testLogger())

	record, err := e.Extract(detailPage(
		labelRow("Entity Status", "Active"),
		labelRow("Name of Individual or Legal Entity", "AGENT CO"),
		labelRow("Status", "Pending"),
	))
	require.NoError(t, err)

	assert.Equal(t, "Active", strValue(t, record.EntityInformation, models.FieldEntityStatus))
	assert.Equal(t, "Pending", strValue(t, record.RegisteredAgent, models.FieldAgentStatus))
}

func TestExtractEntityBusinessIDFirstValueWins(t *testing.T) {
	e := NewExtractor(testLogger())

	record, err := e.Extract(detailPage(
		labelRow("NV Business ID", "NV1111"),
		labelRow("NV Business ID", "NV2222"),
	))
	require.NoError(t, err)

	assert.Equal(t, "NV1111", strValue(t, record.EntityInformation, models.FieldNVBusinessID))
}

func TestExtractBusinessIDAfterAgentNameGoesToAgent(t *testing.T) {
	e := NewExtractor(testLogger())

	record, err := e.Extract(detailPage(
		labelRow("NV Business ID", "NV1111"),
		labelRow("Name of Individual or Legal Entity", "AGENT CO"),
		labelRow("NV Business ID", "NV2222"),
	))
	require.NoError(t, err)

	assert.Equal(t, "NV1111", strValue(t, record.EntityInformation, models.FieldNVBusinessID))
	assert.Equal(t, "NV2222", strValue(t, record.RegisteredAgent, models.FieldAgentNVBusinessID))
}

func TestExtractEmptyDocument(t *testing.T) {
	e := NewExtractor(testLogger())

	_, err := e.Extract("")
	assert.Error(t, err)

	_, err = e.Extract("   \n\t  ")
	assert.Error(t, err)
}

func TestExtractDocumentWithoutPanels(t *testing.T) {
	e := NewExtractor(testLogger())

	record, err := e.Extract("<html><body><p>maintenance page</p></body></html>")
	require.NoError(t, err)

	assert.True(t, record.Metadata.Success)
	assert.Empty(t, record.EntityInformation)
	assert.Empty(t, record.RegisteredAgent)
	assert.Empty(t, record.Officers)
}

func TestExtractUnknownLabelsIgnored(t *testing.T) {
	e := NewExtractor(testLogger())

	record, err := e.Extract(detailPage(
		labelRow("Entity Name", "ACME LLC"),
		labelRow("Some Future Field", "whatever"),
	))
	require.NoError(t, err)

	assert.Len(t, record.EntityInformation, 1)
	assert.Equal(t, "ACME LLC", strValue(t, record.EntityInformation, models.FieldEntityName))
}

func TestExtractDeterministic(t *testing.T) {
	fixed := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	e := NewExtractor(testLogger())
	e.now = func() time.Time { return fixed }

	first, err := e.Extract(fullDetailPage())
	require.NoError(t, err)
	second, err := e.Extract(fullDetailPage())
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(firstJSON), string(secondJSON))

	assert.Equal(t, "2026-08-24 12:00:00", first.Metadata.ScrapedAt)
}
