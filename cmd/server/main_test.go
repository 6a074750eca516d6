package main_test

import (
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"testing"

	"github.com/amirasaad/fxengine/webapi/testutils"
	"github.com/stretchr/testify/suite"
)

// TestMain runs before any tests and applies globally for all tests in the package.
func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	log.SetOutput(io.Discard)

	exitVal := m.Run()
	os.Exit(exitVal)
}

type MainTestSuite struct {
	suite.Suite
	server *testutils.Server
}

func TestMainTestSuite(t *testing.T) {
	suite.Run(t, new(MainTestSuite))
}

func (s *MainTestSuite) SetupTest() {
	s.server = testutils.NewServer(s.T())
}

func (s *MainTestSuite) TestStartServer_RootRoute() {
	resp := s.server.MakeRequest(http.MethodGet, "/", "", "")
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *MainTestSuite) TestProtectedRoute_Unauthorized() {
	resp := s.server.MakeRequest(http.MethodPost, "/api/admin/reload", "", "bogus")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *MainTestSuite) TestNotFoundRoute() {
	resp := s.server.MakeRequest(http.MethodGet, "/doesnotexist", "", "")
	s.Equal(http.StatusNotFound, resp.StatusCode)
	s.Equal("application/problem+json", resp.Header.Get("Content-Type"))
}

func (s *MainTestSuite) TestConvertRoute_BadRequest() {
	resp := s.server.MakeRequest(http.MethodPost, "/api/convert", "", "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}
