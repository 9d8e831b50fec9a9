package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strakmachine/model"
	"strakmachine/params"
	"strakmachine/pipeline"
	"strakmachine/worker"
	"strakmachine/worker/workertest"
)

const doc = `{
    "seedFoilName": "JX-GT-15",
    "reynolds": [150000, 100000],
    "airfoilNames": ["JX-GT-15", "JX-GT-12"],
    "alphaResolution": 0.01
}`

type session struct {
	s          *Server
	conn       *websocket.Conn
	paramsFile string
}

func newSession(t *testing.T) *session {
	t.Helper()
	dir := t.TempDir()
	paramsFile, err := workertest.Setup(dir, doc)
	require.NoError(t, err)
	p, err := params.LoadFile(paramsFile)
	require.NoError(t, err)
	pl, err := pipeline.New(p, &workertest.Tools{}, pipeline.Options{
		BuildDir:    filepath.Join(dir, "build"),
		ParamsFile:  paramsFile,
		PolarWorker: workertest.PolarTool,
		Optimizer:   workertest.OptTool,
		Probe:       worker.Range{Min: -20, Max: 20, Step: 0.25},
	})
	require.NoError(t, err)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	s := NewServer(":0", upgrader, pl)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &session{s: s, conn: conn, paramsFile: paramsFile}
}

func (c *session) request(t *testing.T, typ, airfoil string, content any) model.Msg {
	t.Helper()
	msg := model.Msg{Type: typ, Airfoil: airfoil}
	if content != nil {
		b, err := json.Marshal(content)
		require.NoError(t, err)
		msg.Content = b
	}
	require.NoError(t, c.conn.WriteJSON(&msg))
	return c.receive(t)
}

func (c *session) receive(t *testing.T) model.Msg {
	t.Helper()
	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(30*time.Second)))
	var reply model.Msg
	require.NoError(t, c.conn.ReadJSON(&reply))
	return reply
}

func opPoints(t *testing.T, msg model.Msg) model.OpPointsContent {
	t.Helper()
	require.Equal(t, model.MsgOpPoints, msg.Type, string(msg.Content))
	var c model.OpPointsContent
	require.NoError(t, json.Unmarshal(msg.Content, &c))
	return c
}

func TestLoad(t *testing.T) {
	c := newSession(t)
	got := opPoints(t, c.request(t, model.MsgLoad, "JX-GT-12", nil))

	assert.Equal(t, "JX-GT-12", got.Airfoil)
	assert.Equal(t, 100000.0, got.Re)
	assert.Len(t, got.OpPoints, 22)
	assert.False(t, got.Edited)
	assert.NotEmpty(t, got.Session)
	assert.Contains(t, got.TargetPolar, "Calculated polar for")
}

func TestEditUndo(t *testing.T) {
	c := newSession(t)
	orig := opPoints(t, c.request(t, model.MsgLoad, "JX-GT-12", nil))

	edited := opPoints(t, c.request(t, model.MsgEdit, "JX-GT-12", model.EditContent{Index: 4, Value: 0.3, Target: 0.0069}))
	assert.True(t, edited.Edited)
	assert.Equal(t, 0.3, edited.OpPoints[4].Value)
	assert.Equal(t, 0.0069, edited.OpPoints[4].Target)
	assert.Equal(t, orig.OpPoints[4].Mode, edited.OpPoints[4].Mode)

	again := opPoints(t, c.request(t, model.MsgEdit, "JX-GT-12", model.EditContent{Index: 4, Value: 0.31, Target: 0.0068}))
	assert.Equal(t, 0.31, again.OpPoints[4].Value)

	undone := opPoints(t, c.request(t, model.MsgUndo, "JX-GT-12", nil))
	assert.True(t, undone.Edited)
	assert.Equal(t, 0.3, undone.OpPoints[4].Value)

	undone = opPoints(t, c.request(t, model.MsgUndo, "JX-GT-12", nil))
	assert.False(t, undone.Edited)
	assert.InDelta(t, orig.OpPoints[4].Value, undone.OpPoints[4].Value, 1e-5)

	reply := c.request(t, model.MsgUndo, "JX-GT-12", nil)
	assert.Equal(t, model.MsgError, reply.Type)
	assert.Contains(t, string(reply.Content), "nothing to undo")
}

func TestReset(t *testing.T) {
	c := newSession(t)
	opPoints(t, c.request(t, model.MsgEdit, "JX-GT-12", model.EditContent{Index: 2, Value: 0.01, Target: 0.007}))

	reset := opPoints(t, c.request(t, model.MsgReset, "JX-GT-12", nil))
	assert.False(t, reset.Edited)
	p, err := params.LoadFile(c.paramsFile)
	require.NoError(t, err)
	_, ok := p.Override("JX-GT-12")
	assert.False(t, ok)
}

func TestBadRequests(t *testing.T) {
	c := newSession(t)

	reply := c.request(t, model.MsgLoad, "NoSuchFoil", nil)
	assert.Equal(t, model.MsgError, reply.Type)

	reply = c.request(t, "zoom", "JX-GT-12", nil)
	assert.Equal(t, model.MsgError, reply.Type)

	reply = c.request(t, model.MsgEdit, "JX-GT-12", model.EditContent{Index: 99})
	assert.Equal(t, model.MsgError, reply.Type)
}

func TestReloadNotifies(t *testing.T) {
	c := newSession(t)
	ctx := context.Background()
	opPoints(t, c.request(t, model.MsgLoad, "JX-GT-12", nil))

	changed, err := c.s.Reload(ctx, c.paramsFile)
	require.NoError(t, err)
	assert.False(t, changed, "nothing changed on disk")

	b, err := os.ReadFile(c.paramsFile)
	require.NoError(t, err)
	updated := strings.Replace(string(b), `"alphaResolution": 0.01`, `"alphaResolution": 0.01, "numOpPoints": 12`, 1)
	require.NoError(t, os.WriteFile(c.paramsFile, []byte(updated), 0644))

	changed, err = c.s.Reload(ctx, c.paramsFile)
	require.NoError(t, err)
	assert.True(t, changed)

	msg := c.receive(t)
	assert.Equal(t, model.MsgParams, msg.Type)
	var names []string
	require.NoError(t, json.Unmarshal(msg.Content, &names))
	assert.Equal(t, []string{"JX-GT-15", "JX-GT-12"}, names)

	got := opPoints(t, c.request(t, model.MsgLoad, "JX-GT-12", nil))
	assert.Len(t, got.OpPoints, 17)
}
