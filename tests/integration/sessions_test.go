//go:build integration

package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.mongodb.org/mongo-driver/v2/bson"

	"sessiond/internal/httpclient"
)

func uniqueName(prefix string) string {
	return prefix + "_" + uuid.NewString()[:8]
}

// TestMongoSessionsEndpoint is the acceptance check: one authenticated
// request against a MongoDB-backed server yields exactly one session for
// the user.
func TestMongoSessionsEndpoint(t *testing.T) {
	requireContainers(t)

	database := uniqueName("sessiond")
	fixture := SetupTestServer(t, map[string]string{
		"SESSION_STORE_TYPE": "mongodb",
		"MONGODB_URI":        mongoURL,
		"MONGODB_DATABASE":   database,
	})

	createSession(t, fixture.ServerURL)

	resp := getSessions(t, fixture.ServerURL)
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, gjson.Get(body, "sessions").Array(), 1)

	// The session document lives in MongoDB.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	count, err := mongoClient.Database(database).Collection("sessions").
		CountDocuments(ctx, bson.M{"principal": testUsername})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPostgreSQLSessionsEndpoint(t *testing.T) {
	requireContainers(t)

	_, err := pgPool.Exec(testCtx, "DROP TABLE IF EXISTS sessions")
	require.NoError(t, err)

	fixture := SetupTestServer(t, map[string]string{
		"SESSION_STORE_TYPE": "postgresql",
		"POSTGRES_URL":       pgURL,
	})

	createSession(t, fixture.ServerURL)

	resp := getSessions(t, fixture.ServerURL)
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, gjson.Get(body, "sessions").Array(), 1)

	var count int
	require.NoError(t, pgPool.QueryRow(testCtx, "SELECT COUNT(*) FROM sessions WHERE principal = $1", testUsername).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRedisSessionsEndpoint(t *testing.T) {
	requireContainers(t)

	fixture := SetupTestServer(t, map[string]string{
		"SESSION_STORE_TYPE": "redis",
		"REDIS_URL":          redisURL,
		"REDIS_KEY_PREFIX":   uniqueName("sessiond"),
	})

	createSession(t, fixture.ServerURL)

	resp := getSessions(t, fixture.ServerURL)
	body := readBody(t, resp)

	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Len(t, gjson.Get(body, "sessions").Array(), 1)
}

func TestSessionsEndpointRequiresAuthentication(t *testing.T) {
	requireContainers(t)

	fixture := SetupTestServer(t, map[string]string{
		"SESSION_STORE_TYPE": "mongodb",
		"MONGODB_URI":        mongoURL,
		"MONGODB_DATABASE":   uniqueName("sessiond"),
	})

	resp := send(t, http.MethodGet, fixture.ServerURL+sessionsPath+"?username="+testUsername, false)
	defer closeBody(resp)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
}

func TestManagementClientAgainstMongo(t *testing.T) {
	requireContainers(t)

	fixture := SetupTestServer(t, map[string]string{
		"SESSION_STORE_TYPE": "mongodb",
		"MONGODB_URI":        mongoURL,
		"MONGODB_DATABASE":   uniqueName("sessiond"),
	})
	client := httpclient.NewManagementClient(fixture.ServerURL, testUsername, testPassword, nil)
	ctx := context.Background()

	// Requests sharing a cookie jar reuse one session.
	first, err := client.Touch(ctx)
	require.NoError(t, err)
	second, err := client.Touch(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	sessions, err := client.ListSessions(ctx, testUsername)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Contains(t, sessions[0].AttributeNames, "uid")

	got, err := client.GetSession(ctx, sessions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, sessions[0].ID, got.ID)

	require.NoError(t, client.DeleteSession(ctx, sessions[0].ID))

	sessions, err = client.ListSessions(ctx, testUsername)
	require.NoError(t, err)
	assert.Empty(t, sessions, fmt.Sprintf("sessions after delete: %v", sessions))
}
