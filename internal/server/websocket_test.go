package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MeKo-Tech/barscan/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialScan(t *testing.T, s *Server, query string) *websocket.Conn {
	t.Helper()
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/scan" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) WebSocketMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	var msg WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestScanWebSocket_ProcessedThenDetected(t *testing.T) {
	conn := dialScan(t, newTestServer(t, nil), "")

	data := encodePNG(t, testutil.EAN13Image(t, testutil.SampleEAN13))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, data))

	processed := readMessage(t, conn)
	assert.Equal(t, "processed", processed.Type)
	require.NotNil(t, processed.Result)
	assert.Equal(t, "ws:1", processed.Result.Source)
	assert.True(t, processed.Result.Detected)

	detected := readMessage(t, conn)
	assert.Equal(t, "detected", detected.Type)
	require.NotEmpty(t, detected.Result.Codes)
	assert.Equal(t, testutil.SampleEAN13, detected.Result.Codes[0].Text)
	assert.Equal(t, processed.Result.Frame, detected.Result.Frame)
}

func TestScanWebSocket_BlankFrameOnlyProcessed(t *testing.T) {
	conn := dialScan(t, newTestServer(t, nil), "")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, encodePNG(t, testutil.BlankImage(200, 200))))
	msg := readMessage(t, conn)
	assert.Equal(t, "processed", msg.Type)
	assert.False(t, msg.Result.Detected)

	// The next frame's processed event proves no detected event was queued in between.
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, encodePNG(t, testutil.BlankImage(200, 200))))
	msg = readMessage(t, conn)
	assert.Equal(t, "processed", msg.Type)
	assert.Equal(t, "ws:2", msg.Result.Source)
}

func TestScanWebSocket_RejectsBadMessages(t *testing.T) {
	conn := dialScan(t, newTestServer(t, nil), "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"hello":"world"}`)))
	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Error, "binary")

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("garbage")))
	msg = readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Invalid image format", msg.Error)
}

func TestScanWebSocket_UnknownReader(t *testing.T) {
	conn := dialScan(t, newTestServer(t, nil), "?readers=qr_reader")

	msg := readMessage(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Error, "scan session failed")

	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "server closes the connection")
}
