package services

import (
	"context"
	"testing"

	apperrors "github.com/gmaiocc/itic-website-sub000/pkg/errors"
	"github.com/gmaiocc/itic-website-sub000/shared/audit"
	"github.com/gmaiocc/itic-website-sub000/v1/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWhitelistService(t *testing.T) (*WhitelistService, *recordingAuditor) {
	t.Helper()
	auditor := &recordingAuditor{}
	return NewWhitelistService(setupSQLiteTestDB(t), nil, auditor), auditor
}

func TestCreateEntry_DerivesRoleFromPosition(t *testing.T) {
	tests := []struct {
		position string
		role     models.Role
	}{
		{"President", models.RoleAdmin},
		{"vice-president", models.RoleAdmin},
		{"Head of Markets", models.RoleDepartmentHead},
		{"Analyst", models.RoleMember},
	}

	for _, tt := range tests {
		t.Run(tt.position, func(t *testing.T) {
			service, auditor := newTestWhitelistService(t)
			entry, err := service.CreateEntry(context.Background(), adminCaller(), &models.CreateWhitelistRequest{
				Email:      "New.Member@itic.pt",
				FullName:   "New Member",
				Department: "Markets",
				Position:   tt.position,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.role, entry.Role)
			assert.Equal(t, "new.member@itic.pt", entry.Email)
			assert.Equal(t, "president@itic.pt", entry.CreatedBy)
			assert.NotEmpty(t, entry.ID)
			assert.Equal(t, audit.EventTypeWhitelist, auditor.last().EventType)
		})
	}
}

func TestCreateEntry_Validation(t *testing.T) {
	service, _ := newTestWhitelistService(t)

	_, err := service.CreateEntry(context.Background(), adminCaller(), &models.CreateWhitelistRequest{Email: "a@itic.pt", Position: "Analyst"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = service.CreateEntry(context.Background(), adminCaller(), &models.CreateWhitelistRequest{Email: "a@itic.pt", FullName: "A"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestCreateEntry_Conflicts(t *testing.T) {
	service, _ := newTestWhitelistService(t)
	seedProfile(t, service.db, models.Profile{ID: "u1", Email: "member@itic.pt"})

	_, err := service.CreateEntry(context.Background(), adminCaller(), &models.CreateWhitelistRequest{
		Email: "member@itic.pt", FullName: "Member", Position: "Analyst",
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))

	req := &models.CreateWhitelistRequest{Email: "fresh@itic.pt", FullName: "Fresh", Position: "Analyst"}
	_, err = service.CreateEntry(context.Background(), adminCaller(), req)
	require.NoError(t, err)
	_, err = service.CreateEntry(context.Background(), adminCaller(), req)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
}

func TestCreateEntry_Scoping(t *testing.T) {
	service, _ := newTestWhitelistService(t)

	_, err := service.CreateEntry(context.Background(), headCaller("Markets"), &models.CreateWhitelistRequest{
		Email: "a@itic.pt", FullName: "A", Department: "Research", Position: "Analyst",
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	_, err = service.CreateEntry(context.Background(), headCaller("Markets"), &models.CreateWhitelistRequest{
		Email: "b@itic.pt", FullName: "B", Department: "Markets", Position: "President",
	})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	_, err = service.CreateEntry(context.Background(), headCaller("Markets"), &models.CreateWhitelistRequest{
		Email: "c@itic.pt", FullName: "C", Department: "Markets", Position: "Analyst",
	})
	assert.NoError(t, err)
}

func TestListEntries_Scoping(t *testing.T) {
	service, _ := newTestWhitelistService(t)
	for _, req := range []models.CreateWhitelistRequest{
		{Email: "a@itic.pt", FullName: "A", Department: "Markets", Position: "Analyst"},
		{Email: "b@itic.pt", FullName: "B", Department: "Research", Position: "Analyst"},
	} {
		_, err := service.CreateEntry(context.Background(), adminCaller(), &req)
		require.NoError(t, err)
	}

	all, err := service.ListEntries(context.Background(), adminCaller())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	markets, err := service.ListEntries(context.Background(), headCaller("Markets"))
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "a@itic.pt", markets[0].Email)

	_, err = service.ListEntries(context.Background(), memberCaller("m1", "Markets"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))
}

func TestRemoveEntry(t *testing.T) {
	service, _ := newTestWhitelistService(t)
	first, err := service.CreateEntry(context.Background(), adminCaller(), &models.CreateWhitelistRequest{
		Email: "a@itic.pt", FullName: "A", Department: "Markets", Position: "Analyst",
	})
	require.NoError(t, err)
	_, err = service.CreateEntry(context.Background(), adminCaller(), &models.CreateWhitelistRequest{
		Email: "b@itic.pt", FullName: "B", Department: "Research", Position: "Analyst",
	})
	require.NoError(t, err)

	require.NoError(t, service.RemoveEntry(context.Background(), adminCaller(), first.ID))

	err = service.RemoveEntry(context.Background(), headCaller("Markets"), "B@itic.pt")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeForbidden))

	require.NoError(t, service.RemoveEntry(context.Background(), headCaller("Research"), "B@itic.pt"))

	err = service.RemoveEntry(context.Background(), adminCaller(), "b@itic.pt")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func TestEntryAndProfileCoexist(t *testing.T) {
	service, _ := newTestWhitelistService(t)
	_, err := service.CreateEntry(context.Background(), adminCaller(), &models.CreateWhitelistRequest{
		Email: "a@itic.pt", FullName: "A", Position: "Analyst",
	})
	require.NoError(t, err)

	// registering later does not consume the entry
	seedProfile(t, service.db, models.Profile{ID: "u1", Email: "a@itic.pt"})

	check, err := service.LookupByEmail(context.Background(), "A@itic.pt")
	require.NoError(t, err)
	assert.True(t, check.Whitelisted)
	assert.Equal(t, models.RoleMember, check.Role)
}

func TestLookupByEmail(t *testing.T) {
	service, _ := newTestWhitelistService(t)

	check, err := service.LookupByEmail(context.Background(), "nobody@itic.pt")
	require.NoError(t, err)
	assert.False(t, check.Whitelisted)

	_, err = service.LookupByEmail(context.Background(), "  ")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
