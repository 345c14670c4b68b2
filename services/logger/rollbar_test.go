package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST"})
	logger.Enable(false)

	usr := user.User{ID: 1, Name: "Alice", Email: "alice@test.cd"}
	extras := map[string]interface{}{"assessmentId": 3}
	args := []interface{}{errors.New("boom"), usr, extras}

	assert.Equal(t, []interface{}{"computing report", args[0], extras}, logger.prepare("computing report", args))

	logger.Error("computing report", args...)
	out := buf.String()
	assert.Contains(t, out, "ERROR: computing report\n")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "map[assessmentId:3]")
}
