package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConnectionFixture() (*ConnectionHandler, *fakeUserRepo, *fakeConnectionRepo, *fakeNotificationRepo) {
	users := newFakeUserRepo()
	connections := newFakeConnectionRepo(users)
	notifications := &fakeNotificationRepo{}
	handler := NewConnectionHandler(connections, users, notifications)
	return handler, users, connections, notifications
}

func sendRequest(t *testing.T, handler *ConnectionHandler, from uuid.UUID, to uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"requestee_id":%q}`, to)
	c, rec := newTestContext(http.MethodPost, "/connections/requests", body, from, "+15550000001")
	require.NoError(t, handler.SendRequest(c))
	return rec
}

func TestSendRequestCreatesPending(t *testing.T) {
	handler, users, _, notifications := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)
	bob := users.addUser("+15550000002", "Bob", 15)

	rec := sendRequest(t, handler, alice, bob)
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "pending", resp.Data.Status)

	// Requestee gets exactly one notification.
	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, bob, notifications.notifications[0].RecipientID)
}

func TestSendRequestToSelfRejected(t *testing.T) {
	handler, users, _, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)

	rec := sendRequest(t, handler, alice, alice)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendRequestUnknownTarget(t *testing.T) {
	handler, users, _, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)

	rec := sendRequest(t, handler, alice, uuid.New())
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDuplicateRequestConflicts(t *testing.T) {
	handler, users, _, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)
	bob := users.addUser("+15550000002", "Bob", 15)

	rec := sendRequest(t, handler, alice, bob)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same direction.
	rec = sendRequest(t, handler, alice, bob)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Opposite direction hits the same pending record.
	rec = sendRequest(t, handler, bob, alice)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSendRequestAtCapRejected(t *testing.T) {
	handler, users, connections, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 2)
	bob := users.addUser("+15550000002", "Bob", 15)

	// Fill Alice's cap of 2 with accepted connections.
	for i := 0; i < 2; i++ {
		friend := users.addUser(fmt.Sprintf("+1555100000%d", i), "Friend", 15)
		conn, err := connections.CreateRequest(alice, friend, 2)
		require.NoError(t, err)
		_, err = connections.Accept(conn.ID, friend, 15)
		require.NoError(t, err)
	}

	rec := sendRequest(t, handler, alice, bob)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAcceptRequest(t *testing.T) {
	handler, users, connections, notifications := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)
	bob := users.addUser("+15550000002", "Bob", 15)

	conn, err := connections.CreateRequest(alice, bob, 15)
	require.NoError(t, err)

	c, rec := newTestContext(http.MethodPut, "/", "", bob, "+15550000002")
	c.SetParamNames("id")
	c.SetParamValues(conn.ID.String())
	require.NoError(t, handler.AcceptRequest(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	stored, err := connections.GetByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "accepted", stored.Status)
	assert.NotNil(t, stored.ConfirmedAt)

	// Requester is told their request was accepted.
	require.Len(t, notifications.notifications, 1)
	assert.Equal(t, alice, notifications.notifications[0].RecipientID)
}

func TestAcceptByRequesterForbidden(t *testing.T) {
	handler, users, connections, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)
	bob := users.addUser("+15550000002", "Bob", 15)

	conn, err := connections.CreateRequest(alice, bob, 15)
	require.NoError(t, err)

	c, rec := newTestContext(http.MethodPut, "/", "", alice, "+15550000001")
	c.SetParamNames("id")
	c.SetParamValues(conn.ID.String())
	require.NoError(t, handler.AcceptRequest(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAcceptAtCapRejected(t *testing.T) {
	handler, users, connections, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)
	bob := users.addUser("+15550000002", "Bob", 1)

	// Bob is already at his cap of 1.
	friend := users.addUser("+15551000000", "Friend", 15)
	existing, err := connections.CreateRequest(bob, friend, 1)
	require.NoError(t, err)
	_, err = connections.Accept(existing.ID, friend, 15)
	require.NoError(t, err)

	conn, err := connections.CreateRequest(alice, bob, 15)
	require.NoError(t, err)

	c, rec := newTestContext(http.MethodPut, "/", "", bob, "+15550000002")
	c.SetParamNames("id")
	c.SetParamValues(conn.ID.String())
	require.NoError(t, handler.AcceptRequest(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// The request is still pending; Bob can free a slot and accept later.
	stored, err := connections.GetByID(conn.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", stored.Status)
}

func TestDeclineDeletesRequest(t *testing.T) {
	handler, users, connections, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)
	bob := users.addUser("+15550000002", "Bob", 15)

	conn, err := connections.CreateRequest(alice, bob, 15)
	require.NoError(t, err)

	c, rec := newTestContext(http.MethodDelete, "/", "", bob, "+15550000002")
	c.SetParamNames("id")
	c.SetParamValues(conn.ID.String())
	require.NoError(t, handler.DeclineRequest(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Record is gone, so Alice can send a fresh request.
	_, err = connections.GetByID(conn.ID)
	assert.Error(t, err)
	rec2 := sendRequest(t, handler, alice, bob)
	assert.Equal(t, http.StatusCreated, rec2.Code)
}

func TestRemoveConnectionFreesCapSlot(t *testing.T) {
	handler, users, connections, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 1)
	bob := users.addUser("+15550000002", "Bob", 15)
	carol := users.addUser("+15550000003", "Carol", 15)

	conn, err := connections.CreateRequest(alice, bob, 1)
	require.NoError(t, err)
	_, err = connections.Accept(conn.ID, bob, 15)
	require.NoError(t, err)

	// At cap: a request toward Carol is rejected.
	rec := sendRequest(t, handler, alice, carol)
	require.Equal(t, http.StatusConflict, rec.Code)

	// Either party may remove; Bob does.
	c, rec2 := newTestContext(http.MethodDelete, "/", "", bob, "+15550000002")
	c.SetParamNames("id")
	c.SetParamValues(conn.ID.String())
	require.NoError(t, handler.RemoveConnection(c))
	assert.Equal(t, http.StatusOK, rec2.Code)

	// Slot is free again.
	rec3 := sendRequest(t, handler, alice, carol)
	assert.Equal(t, http.StatusCreated, rec3.Code)
}

func TestRemoveConnectionByStrangerForbidden(t *testing.T) {
	handler, users, connections, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)
	bob := users.addUser("+15550000002", "Bob", 15)
	mallory := users.addUser("+15550000004", "Mallory", 15)

	conn, err := connections.CreateRequest(alice, bob, 15)
	require.NoError(t, err)
	_, err = connections.Accept(conn.ID, bob, 15)
	require.NoError(t, err)

	c, rec := newTestContext(http.MethodDelete, "/", "", mallory, "+15550000004")
	c.SetParamNames("id")
	c.SetParamValues(conn.ID.String())
	require.NoError(t, handler.RemoveConnection(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetConnectionsFlattensDirection(t *testing.T) {
	handler, users, connections, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 15)
	bob := users.addUser("+15550000002", "Bob", 15)
	carol := users.addUser("+15550000003", "Carol", 15)

	// Alice requested Bob; Carol requested Alice. Both accepted.
	c1, err := connections.CreateRequest(alice, bob, 15)
	require.NoError(t, err)
	_, err = connections.Accept(c1.ID, bob, 15)
	require.NoError(t, err)
	c2, err := connections.CreateRequest(carol, alice, 15)
	require.NoError(t, err)
	_, err = connections.Accept(c2.ID, alice, 15)
	require.NoError(t, err)

	c, rec := newTestContext(http.MethodGet, "/connections", "", alice, "+15550000001")
	require.NoError(t, handler.GetConnections(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []struct {
			Friend struct {
				FirstName string `json:"first_name"`
			} `json:"friend"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 2)
	names := []string{resp.Data[0].Friend.FirstName, resp.Data[1].Friend.FirstName}
	assert.ElementsMatch(t, []string{"Bob", "Carol"}, names)
}

func TestGetConnectionCount(t *testing.T) {
	handler, users, connections, _ := newConnectionFixture()
	alice := users.addUser("+15550000001", "Alice", 25)
	bob := users.addUser("+15550000002", "Bob", 15)

	conn, err := connections.CreateRequest(alice, bob, 25)
	require.NoError(t, err)
	_, err = connections.Accept(conn.ID, bob, 15)
	require.NoError(t, err)

	c, rec := newTestContext(http.MethodGet, "/connections/count", "", alice, "+15550000001")
	require.NoError(t, handler.GetConnectionCount(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Count int `json:"count"`
			Cap   int `json:"connection_cap"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Data.Count)
	assert.Equal(t, 25, resp.Data.Cap)
}
