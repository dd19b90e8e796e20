package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sheetfit/sheetfit/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 5, 14, 10, 0, 0, 0, time.Local)

func profileFixture() (*Service, *sheets.TestClient) {
	tc := sheets.NewTestClient()
	tc.AddSheet("Profile", [][]string{
		{"Name", "Serj", "", "Date", "Weight", "TDEE"},
		{"DOB", "16/05/1991", "", "2025-05-12", "88.4", "3100"},
		{"Goal Weight", "82", "", "2025-05-13", "88.1", "3080"},
		{"Height", "186"},
	})

	service := NewService(tc, "Profile")
	service.timeNow = func() time.Time { return testNow }
	return service, tc
}

func TestService_ProfileData(t *testing.T) {
	service, _ := profileFixture()

	data, err := service.ProfileData(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Serj", data.Profile.Name)
	assert.Equal(t, "16/05/1991", data.Profile.DateOfBirth)
	assert.Equal(t, 82.0, data.Profile.GoalWeight)
	assert.Equal(t, 186.0, data.Profile.Height)
	// birthday is in two days, still 33
	assert.Equal(t, 33, data.Profile.Age)

	require.Len(t, data.WeightHistory, 2)
	assert.Equal(t, WeightEntry{Date: "2025-05-12", Weight: "88.4", TDEE: "3100"}, data.WeightHistory[0])
	assert.Equal(t, WeightEntry{Date: "2025-05-13", Weight: "88.1", TDEE: "3080"}, data.WeightHistory[1])
}

func TestService_ProfileData_backendError(t *testing.T) {
	service, tc := profileFixture()
	tc.GetErr = errors.New("backend unavailable")

	_, err := service.ProfileData(context.Background())
	require.Error(t, err)
}

func TestService_SaveWeightEntry(t *testing.T) {
	service, tc := profileFixture()

	row, err := service.SaveWeightEntry(context.Background(), "2025-05-14", "87.9", "3075")
	require.NoError(t, err)
	assert.Equal(t, 4, row)

	rows := tc.Rows("Profile")
	require.Len(t, rows, 4)
	assert.Equal(t, "2025-05-14", rows[3][3])
	assert.Equal(t, "87.9", rows[3][4])
	assert.Equal(t, "3075", rows[3][5])
	// fixed profile block untouched
	assert.Equal(t, "186", rows[3][1])
}

func TestService_ageFromDOB(t *testing.T) {
	service, _ := profileFixture()

	// slash format is day first
	assert.Equal(t, 33, service.ageFromDOB("16/05/1991"))
	assert.Equal(t, 34, service.ageFromDOB("10/05/1991"))
	assert.Equal(t, 34, service.ageFromDOB("14/05/1991"))
	// generic fallback
	assert.Equal(t, 33, service.ageFromDOB("1991-05-16"))
	assert.Equal(t, 0, service.ageFromDOB("who knows"))
}

func TestComputeTDEE(t *testing.T) {
	// 10*88 + 6.25*186 - 5*34 + 5 = 1877.5, times 1.9
	assert.Equal(t, 3567, ComputeTDEE(88, 186, 34))
	assert.Equal(t, 10, ComputeTDEE(0, 0, 0))
}
