package server_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atomic-gpt-explorer/config"
	"atomic-gpt-explorer/ops"
	"atomic-gpt-explorer/server"
)

func newTestServer() *server.Server {
	return server.New(ops.SerialPool{}, zerolog.New(io.Discard))
}

func smallModelConfig() config.Model {
	return config.Model{NEmbd: 4, NHead: 2, NLayer: 1, BlockSize: 4}
}

func TestHealthz(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	assert.Equal(t, 200, rec.Code)
}

func TestTrainBeforeInitFails(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest("POST", "/api/train", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	assert.Equal(t, 400, rec.Code)
}

func TestInitTrainGenerateFlow(t *testing.T) {
	s := newTestServer()
	router := s.Routes()

	initBody, err := json.Marshal(server.InitRequest{
		Docs:   []string{"hello world, this is a tiny corpus for testing"},
		Config: smallModelConfig(),
	})
	require.NoError(t, err)

	initReq := httptest.NewRequest("POST", "/api/init", bytes.NewReader(initBody))
	initReq.Header.Set("Content-Type", "application/json")
	initRec := httptest.NewRecorder()
	router.ServeHTTP(initRec, initReq)
	require.Equal(t, 200, initRec.Code)

	trainBody, _ := json.Marshal(server.TrainRequest{Steps: 1})
	trainReq := httptest.NewRequest("POST", "/api/train", bytes.NewReader(trainBody))
	trainReq.Header.Set("Content-Type", "application/json")
	trainRec := httptest.NewRecorder()
	router.ServeHTTP(trainRec, trainReq)
	assert.Equal(t, 200, trainRec.Code)

	genBody, _ := json.Marshal(server.GenerateRequest{Prompt: "hi", MaxNewTokens: 3})
	genReq := httptest.NewRequest("POST", "/api/generate", bytes.NewReader(genBody))
	genReq.Header.Set("Content-Type", "application/json")
	genRec := httptest.NewRecorder()
	router.ServeHTTP(genRec, genReq)
	assert.Equal(t, 200, genRec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(genRec.Body.Bytes(), &resp))
	_, ok := resp["text"]
	assert.True(t, ok)
}
