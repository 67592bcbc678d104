package tasktransport

import (
	"testing"
	"time"

	stdjwt "github.com/dgrijalva/jwt-go"
	"github.com/go-kit/kit/log"
	"github.com/ichigozero/tasknotes/tasksvc/db/memory"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/noteservice"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/taskendpoint"
	"github.com/ichigozero/tasknotes/tasksvc/pkg/taskservice"
)

var testSecret = []byte("test-access-secret")

func newEndpoints() taskendpoint.Set {
	store := memory.NewStore()
	logger := log.NewNopLogger()
	return taskendpoint.New(
		taskservice.New(store.Tasks(), logger),
		noteservice.New(store.Tasks(), store.Notes(), logger),
		logger,
	)
}

func signToken(t *testing.T, secret []byte, userID string, ttl time.Duration) string {
	t.Helper()

	token := stdjwt.NewWithClaims(stdjwt.SigningMethodHS256, stdjwt.MapClaims{
		"uuid":    "session-" + userID,
		"user_id": userID,
		"exp":     time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
