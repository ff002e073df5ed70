package status

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"backoffice/internal/approval"
	"backoffice/internal/dispatch"
	"backoffice/internal/domain"
	"backoffice/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	counts map[domain.RecordKind]approval.Count
	err    error
}

func (s stubCounter) Counts() (map[domain.RecordKind]approval.Count, error) {
	return s.counts, s.err
}

func newTestServer(t *testing.T, c Counter) *Server {
	t.Helper()
	q := dispatch.NewQueue(1, testutil.NewTestLogger())
	t.Cleanup(q.Close)
	return NewServer(c, q, testutil.NewTestLogger())
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, stubCounter{})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestServer_Stats(t *testing.T) {
	tests := []struct {
		name       string
		counter    stubCounter
		wantStatus int
		want       []KindStats
	}{
		{
			name: "sorted by kind",
			counter: stubCounter{counts: map[domain.RecordKind]approval.Count{
				domain.KindSponsor: {Pending: 0, Total: 2},
				domain.KindOrder:   {Pending: 3, Total: 5},
			}},
			wantStatus: fiber.StatusOK,
			want: []KindStats{
				{Kind: domain.KindOrder, Pending: 3, Total: 5},
				{Kind: domain.KindSponsor, Pending: 0, Total: 2},
			},
		},
		{
			name:       "no kinds",
			counter:    stubCounter{counts: map[domain.RecordKind]approval.Count{}},
			wantStatus: fiber.StatusOK,
			want:       []KindStats{},
		},
		{
			name:       "store failure",
			counter:    stubCounter{err: errors.New("disk gone")},
			wantStatus: fiber.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.counter)

			resp, err := s.App().Test(httptest.NewRequest("GET", "/stats", nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.want == nil {
				return
			}

			var got []KindStats
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}
