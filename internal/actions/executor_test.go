package actions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobsignal/internal/store"
	"github.com/jobsignal/pkg/models"
)

func TestNormalizeCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Corp.", "acme"},
		{"Acme, Inc.", "acme"},
		{"ACME", "acme"},
		{"Initech LLC", "initech"},
		{"Wayne Enterprises Ltd", "wayne enterprises"},
		{"Globex Corporation", "globex"},
		{"Bosch GmbH", "bosch"},
		{"Inc", "inc"},
		{"  Hooli  ", "hooli"},
	}
	for _, tt := range tests {
		if got := NormalizeCompanyName(tt.in); got != tt.want {
			t.Errorf("NormalizeCompanyName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStartApplicationCreatesEverything(t *testing.T) {
	mem := store.NewInMemoryStore()
	user := &models.User{ID: "user-1", Email: "dev@example.com"}
	signal := &models.Signal{
		ID:             "sig-1",
		UserID:         user.ID,
		Classification: models.ClassApplicationConfirmation,
		ExtractedData: map[string]string{
			"company_name": "Acme Corp.",
			"job_title":    "Backend Engineer",
		},
	}
	require.NoError(t, mem.CreateSignal(context.Background(), signal))

	exec := NewExecutor(mem)
	res := exec.Execute(context.Background(), signal, user, ActionStartApplication, nil)

	require.True(t, res.Success, "error: %s", res.Err)
	assert.Equal(t, "/applications/"+res.ApplicationID, res.RedirectTo)

	app, err := mem.GetApplication(context.Background(), res.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, app.Status)
	assert.Equal(t, models.StageApplied, app.PipelineStage)

	linked, err := mem.GetSignal(context.Background(), signal.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.ApplicationID)
	assert.Equal(t, app.ID, *linked.ApplicationID)

	company, err := mem.GetCompanyByNormalizedName(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp.", company.Name)
}

func TestStartApplicationReusesCompanyAndRole(t *testing.T) {
	mem := store.NewInMemoryStore()
	existing := &models.Company{Name: "Acme", NormalizedName: "acme"}
	require.NoError(t, mem.CreateCompany(context.Background(), existing))
	role := &models.JobRole{CompanyID: existing.ID, Title: "Backend Engineer"}
	require.NoError(t, mem.CreateJobRole(context.Background(), role))

	user := &models.User{ID: "user-1"}
	signal := &models.Signal{ID: "sig-2", UserID: user.ID}
	require.NoError(t, mem.CreateSignal(context.Background(), signal))

	exec := NewExecutor(mem)
	res := exec.Execute(context.Background(), signal, user, ActionStartApplication, map[string]string{
		"company_name": "ACME Inc",
		"job_title":    "Backend Engineer",
	})

	require.True(t, res.Success, "error: %s", res.Err)
	app, err := mem.GetApplication(context.Background(), res.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, app.CompanyID, "case and suffix differences resolve to the same company")
	assert.Equal(t, role.ID, app.JobRoleID)
}

func TestExecuteRejectsUnknownAction(t *testing.T) {
	exec := NewExecutor(store.NewInMemoryStore())
	res := exec.Execute(context.Background(), &models.Signal{ID: "sig-3"}, &models.User{ID: "u"}, "delete_everything", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "unsupported action")
}

func TestStartApplicationWithoutCompanyFails(t *testing.T) {
	exec := NewExecutor(store.NewInMemoryStore())
	res := exec.Execute(context.Background(), &models.Signal{ID: "sig-4"}, &models.User{ID: "u"}, ActionStartApplication, nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Err, "no company name")
}
