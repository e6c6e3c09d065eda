package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPriorityWeight(t *testing.T) {
	assert.Equal(t, 4, PriorityWeight(PriorityHigh))
	assert.Equal(t, 3, PriorityWeight(PriorityMedium))
	assert.Equal(t, 2, PriorityWeight(PriorityLow))
	assert.Equal(t, 1, PriorityWeight(PriorityDefault))
	assert.Equal(t, 0, PriorityWeight("unknown"))
	assert.Equal(t, 0, PriorityWeight(""))
}

func TestTaskText(t *testing.T) {
	task := Task{Name: "Fix login", Description: "Users cannot sign in"}
	assert.Equal(t, "Fix login Users cannot sign in", task.Text())

	task = Task{Name: "Fix login"}
	assert.Equal(t, "Fix login", task.Text())
}

func TestTaskDescriptionChars(t *testing.T) {
	task := Task{Description: "fix login bug"}
	assert.Equal(t, 13, task.DescriptionChars())

	// Multi-byte runes count once each.
	task = Task{Description: "исправить ошибку входа"}
	assert.Equal(t, 22, task.DescriptionChars())

	task = Task{}
	assert.Equal(t, 0, task.DescriptionChars())
}

func TestTaskValidate(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	task := Task{Name: "ok", Status: StatusCompleted, StartTime: &start, EndTime: &end}
	assert.NoError(t, task.Validate())

	task = Task{Status: StatusPlanned}
	assert.Error(t, task.Validate(), "name is required")

	bad := Task{Name: "bad", Status: StatusCompleted, StartTime: &end, EndTime: &start}
	assert.Error(t, bad.Validate(), "end before start")
}

func TestJSONMapRoundtrip(t *testing.T) {
	m := JSONMap{"source": "import", "confidence": 0.9}

	value, err := m.Value()
	assert.NoError(t, err)

	var decoded JSONMap
	assert.NoError(t, decoded.Scan(value))
	assert.Equal(t, "import", decoded["source"])
}

func TestJSONMapScanNil(t *testing.T) {
	var m JSONMap
	assert.NoError(t, m.Scan(nil))
	assert.NotNil(t, m)
}
