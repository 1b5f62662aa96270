package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/events"
	"taskboard/internal/logging"
	"taskboard/internal/models"
	"taskboard/internal/services"
	"taskboard/internal/testutil"
)

type testAPI struct {
	t      *testing.T
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := testutil.NewStepClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := services.New(testutil.NewCollections(t), services.Options{
		Bus:    events.NewBus(),
		Logger: logging.Discard(),
		Clock:  clock.Now,
	}, nil)

	router := gin.New()
	RegisterAPI(router.Group("/api"), svc)
	return &testAPI{t: t, router: router}
}

func (a *testAPI) do(method, path, body string) *httptest.ResponseRecorder {
	a.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// create POSTs body and returns the decoded document, failing unless 201.
func (a *testAPI) create(path, body string) map[string]interface{} {
	a.t.Helper()
	w := a.do(http.MethodPost, path, body)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decodeObject(a.t, w)
}

func decodeObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func parseTime(t *testing.T, v interface{}) time.Time {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "timestamp %v is not a string", v)
	ts, err := time.Parse(time.RFC3339Nano, s)
	require.NoError(t, err)
	return ts
}

func missingID() string {
	return uuid.Must(uuid.NewV4()).String()
}

func TestCreateTask_AppliesDefaults(t *testing.T) {
	api := newTestAPI(t)

	task := api.create("/api/tasks", `{"title":"Write report"}`)

	assert.Equal(t, "Write report", task["title"])
	assert.Equal(t, "", task["description"])
	assert.Equal(t, "general", task["category"])
	assert.Equal(t, "medium", task["priority"])
	assert.Equal(t, "pending", task["status"])
	assert.Nil(t, task["dueDate"])
	assert.NotEmpty(t, task["id"])
	parseTime(t, task["createdAt"])
	parseTime(t, task["updatedAt"])
}

func TestCreateTask_Validation(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/tasks", `{"title":"Bad","priority":"critical"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeObject(t, w)["error"], "priority")

	w = api.do(http.MethodPost, "/api/tasks", `{"description":"no title"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeObject(t, w)["error"], "title is required")

	w = api.do(http.MethodPost, "/api/tasks", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeObject(t, w)["error"], "title is required")

	created := api.create("/api/tasks", `{"title":"Urgent","priority":"high","dueDate":"2024-04-01T12:00:00Z"}`)
	assert.Equal(t, "high", created["priority"])

	w = api.do(http.MethodGet, "/api/tasks/"+created["id"].(string), "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decodeObject(t, w)
	assert.Equal(t, "high", got["priority"])
	assert.True(t, parseTime(t, got["dueDate"]).Equal(time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)))
}

func TestTask_DueDateForms(t *testing.T) {
	api := newTestAPI(t)
	april := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	dateOnly := api.create("/api/tasks", `{"title":"date only","dueDate":"2024-04-01"}`)
	assert.True(t, parseTime(t, dateOnly["dueDate"]).Equal(april))

	assert.Nil(t, api.create("/api/tasks", `{"title":"empty","dueDate":""}`)["dueDate"])
	assert.Nil(t, api.create("/api/tasks", `{"title":"null","dueDate":null}`)["dueDate"])

	w := api.do(http.MethodPost, "/api/tasks", `{"title":"bad","dueDate":"someday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := dateOnly["id"].(string)
	w = api.do(http.MethodPut, "/api/tasks/"+id, `{"dueDate":"2024-05-02"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, parseTime(t, decodeObject(t, w)["dueDate"]).Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))

	w = api.do(http.MethodGet, "/api/tasks/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, parseTime(t, decodeObject(t, w)["dueDate"]).Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))

	w = api.do(http.MethodPut, "/api/tasks/"+id, `{"dueDate":""}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decodeObject(t, w)["dueDate"])
}

func TestUpdateTask_MergesWithoutEnumValidation(t *testing.T) {
	api := newTestAPI(t)
	task := api.create("/api/tasks", `{"title":"Merge me","description":"keep"}`)
	id := task["id"].(string)

	w := api.do(http.MethodPut, "/api/tasks/"+id, `{"priority":"invalid-priority"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeObject(t, w)
	assert.Equal(t, "invalid-priority", updated["priority"])
	assert.Equal(t, "keep", updated["description"])
	assert.Equal(t, "Merge me", updated["title"])
	assert.Equal(t, id, updated["id"])
	assert.Equal(t, task["createdAt"], updated["createdAt"])

	w = api.do(http.MethodGet, "/api/tasks/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "invalid-priority", decodeObject(t, w)["priority"])
}

func TestUpdate_UpdatedAtStrictlyIncreases(t *testing.T) {
	api := newTestAPI(t)

	for _, path := range []string{"/api/tasks", "/api/notes"} {
		t.Run(strings.TrimPrefix(path, "/api/"), func(t *testing.T) {
			body := `{"title":"t","content":"c"}`
			doc := api.create(path, body)
			prev := parseTime(t, doc["updatedAt"])
			assert.False(t, prev.Before(parseTime(t, doc["createdAt"])))

			for i := 0; i < 3; i++ {
				w := api.do(http.MethodPut, path+"/"+doc["id"].(string), `{"title":"again"}`)
				require.Equal(t, http.StatusOK, w.Code)
				next := parseTime(t, decodeObject(t, w)["updatedAt"])
				assert.True(t, next.After(prev), "updatedAt %s not after %s", next, prev)
				prev = next
			}
		})
	}
}

func TestUpdate_IgnoresIDAndCreatedAt(t *testing.T) {
	api := newTestAPI(t)
	task := api.create("/api/tasks", `{"title":"Immutable"}`)
	id := task["id"].(string)

	w := api.do(http.MethodPut, "/api/tasks/"+id, `{"id":"`+missingID()+`","createdAt":"2001-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeObject(t, w)
	assert.Equal(t, id, updated["id"])
	assert.Equal(t, task["createdAt"], updated["createdAt"])
}

func TestListTasks_Filters(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", strings.TrimSpace(w.Body.String()))

	api.create("/api/tasks", `{"title":"Buy milk","category":"home","priority":"low"}`)
	api.create("/api/tasks", `{"title":"Fix BUG 100%","category":"work","status":"in-progress","priority":"high"}`)
	api.create("/api/tasks", `{"title":"Review bug report","category":"work","status":"completed"}`)

	titles := func(query string) []string {
		w := api.do(http.MethodGet, "/api/tasks"+query, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var out []string
		for _, task := range decodeList(t, w) {
			out = append(out, task["title"].(string))
		}
		return out
	}

	assert.Equal(t, []string{"Review bug report", "Fix BUG 100%", "Buy milk"}, titles(""))
	assert.Equal(t, []string{"Review bug report", "Fix BUG 100%"}, titles("?category=work"))
	assert.Equal(t, []string{"Fix BUG 100%"}, titles("?category=work&status=in-progress"))
	assert.Equal(t, []string{"Buy milk"}, titles("?priority=low"))
	assert.Equal(t, []string{"Review bug report", "Fix BUG 100%"}, titles("?search=bug"))
	assert.Equal(t, []string{"Fix BUG 100%"}, titles("?search=100%25"))
	assert.Empty(t, titles("?search=nothing"))
	assert.Len(t, titles("?category="), 3)
}

func TestMalformedID_StatusPerVerb(t *testing.T) {
	api := newTestAPI(t)

	for _, entity := range []string{"tasks", "categories", "notes", "users"} {
		t.Run(entity, func(t *testing.T) {
			path := "/api/" + entity + "/not-an-id"

			w := api.do(http.MethodGet, path, "")
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, decodeObject(t, w), "error")

			w = api.do(http.MethodPut, path, `{"title":"x"}`)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeObject(t, w), "error")

			w = api.do(http.MethodDelete, path, "")
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Contains(t, decodeObject(t, w), "error")
		})
	}
}

func TestDelete_AllEntities(t *testing.T) {
	api := newTestAPI(t)

	cases := []struct {
		path   string
		entity string
		body   string
	}{
		{"/api/tasks", "Task", `{"title":"gone soon"}`},
		{"/api/categories", "Category", `{"name":"gone soon"}`},
		{"/api/notes", "Note", `{"content":"gone soon"}`},
		{"/api/users", "User", `{"username":"gone","email":"gone@example.com","password":"pw"}`},
	}

	for _, tc := range cases {
		t.Run(tc.entity, func(t *testing.T) {
			w := api.do(http.MethodDelete, tc.path+"/"+missingID(), "")
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, tc.entity+" not found", decodeObject(t, w)["error"])

			w = api.do(http.MethodPut, tc.path+"/"+missingID(), `{}`)
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, tc.entity+" not found", decodeObject(t, w)["error"])

			id := api.create(tc.path, tc.body)["id"].(string)

			w = api.do(http.MethodDelete, tc.path+"/"+id, "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tc.entity+" deleted successfully", decodeObject(t, w)["message"])

			w = api.do(http.MethodGet, tc.path+"/"+id, "")
			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, tc.entity+" not found", decodeObject(t, w)["error"])
		})
	}
}

func TestCategories_DefaultsAndSort(t *testing.T) {
	api := newTestAPI(t)

	work := api.create("/api/categories", `{"name":"Work"}`)
	assert.Equal(t, "#3498db", work["color"])
	assert.Equal(t, "folder", work["icon"])
	api.create("/api/categories", `{"name":"Errands","color":"#ff0000"}`)
	api.create("/api/categories", `{"name":"Work"}`)

	w := api.do(http.MethodPost, "/api/categories", `{"color":"#000000"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	var names []string
	for _, c := range decodeList(t, w) {
		names = append(names, c["name"].(string))
	}
	assert.Equal(t, []string{"Errands", "Work", "Work"}, names)
}

func TestNotes_PinnedFirstThenNewest(t *testing.T) {
	api := newTestAPI(t)

	a := api.create("/api/notes", `{"title":"A","content":"first"}`)
	b := api.create("/api/notes", `{"title":"B","content":"second","pinned":true}`)
	c := api.create("/api/notes", `{"title":"C","content":"third"}`)
	assert.Equal(t, "#ffffa5", a["color"])
	assert.Equal(t, false, a["pinned"])
	assert.Nil(t, a["taskId"])

	w := api.do(http.MethodGet, "/api/notes", "")
	require.Equal(t, http.StatusOK, w.Code)
	var ids []interface{}
	for _, n := range decodeList(t, w) {
		ids = append(ids, n["id"])
	}
	assert.Equal(t, []interface{}{b["id"], c["id"], a["id"]}, ids)
}

func TestSearch_FoldsNonASCIICase(t *testing.T) {
	api := newTestAPI(t)

	api.create("/api/tasks", `{"title":"Ärger mit Éclair"}`)
	api.create("/api/tasks", `{"title":"plain"}`)
	api.create("/api/notes", `{"content":"ÜBER ALLES"}`)

	for _, term := range []string{"ärger", "ÉCLAIR", "éclair", "Ärger mit"} {
		w := api.do(http.MethodGet, "/api/tasks?"+url.Values{"search": {term}}.Encode(), "")
		require.Equal(t, http.StatusOK, w.Code)
		tasks := decodeList(t, w)
		require.Len(t, tasks, 1, term)
		assert.Equal(t, "Ärger mit Éclair", tasks[0]["title"])
	}

	w := api.do(http.MethodGet, "/api/notes?"+url.Values{"search": {"über"}}.Encode(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 1)
}

func TestNotes_Filters(t *testing.T) {
	api := newTestAPI(t)
	task := api.create("/api/tasks", `{"title":"Parent"}`)
	taskID := task["id"].(string)

	api.create("/api/notes", `{"content":"Linked Note","taskId":"`+taskID+`"}`)
	api.create("/api/notes", `{"content":"loose note"}`)

	w := api.do(http.MethodGet, "/api/notes?taskId="+taskID, "")
	require.Equal(t, http.StatusOK, w.Code)
	notes := decodeList(t, w)
	require.Len(t, notes, 1)
	assert.Equal(t, taskID, notes[0]["taskId"])

	w = api.do(http.MethodGet, "/api/notes?search=NOTE", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeList(t, w), 2)

	w = api.do(http.MethodGet, "/api/notes?taskId=garbage", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = api.do(http.MethodPost, "/api/notes", `{"title":"empty"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUsers_EmailUniqueness(t *testing.T) {
	api := newTestAPI(t)

	user := api.create("/api/users", `{"username":"ann","email":"ann@example.com","password":"secret"}`)
	settings := user["settings"].(map[string]interface{})
	assert.Equal(t, "light", settings["theme"])
	assert.Equal(t, true, settings["notifications"])

	w := api.do(http.MethodPost, "/api/users", `{"username":"other","email":"ann@example.com","password":"pw"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", decodeObject(t, w)["error"])

	// the conflict check runs before validation
	w = api.do(http.MethodPost, "/api/users", `{"email":"ann@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", decodeObject(t, w)["error"])

	api.create("/api/users", `{"username":"ann2","email":"Ann@Example.com","password":"pw"}`)

	other := api.create("/api/users", `{"username":"bob","email":"bob@example.com","password":"pw"}`)
	w = api.do(http.MethodPut, "/api/users/"+other["id"].(string), `{"email":"ann@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", decodeObject(t, w)["error"])
}

func TestUsers_PasswordNeverReturned(t *testing.T) {
	api := newTestAPI(t)

	user := api.create("/api/users", `{"username":"cara","email":"cara@example.com","password":"hunter2"}`)
	assert.NotContains(t, user, "password")
	id := user["id"].(string)

	w := api.do(http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, w.Code)
	for _, u := range decodeList(t, w) {
		assert.NotContains(t, u, "password")
	}

	w = api.do(http.MethodGet, "/api/users/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, decodeObject(t, w), "password")

	w = api.do(http.MethodPut, "/api/users/"+id, `{"password":"changed","settings":{"theme":"dark","notifications":false}}`)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decodeObject(t, w)
	assert.NotContains(t, updated, "password")
	assert.Equal(t, "dark", updated["settings"].(map[string]interface{})["theme"])
	assert.Equal(t, user["createdAt"], updated["createdAt"])

	assert.NotContains(t, w.Body.String(), "hunter2")
	assert.NotContains(t, w.Body.String(), "changed")
}

func TestStats_Summary(t *testing.T) {
	api := newTestAPI(t)

	api.create("/api/tasks", `{"title":"one","priority":"high"}`)
	api.create("/api/tasks", `{"title":"two","status":"in-progress"}`)
	api.create("/api/tasks", `{"title":"three","status":"completed","priority":"low"}`)
	api.create("/api/categories", `{"name":"Work"}`)
	api.create("/api/categories", `{"name":"Home"}`)
	api.create("/api/notes", `{"content":"remember"}`)

	w := api.do(http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, stats.Tasks.Total, stats.Priority.High+stats.Priority.Medium+stats.Priority.Low)

	out, err := json.MarshalIndent(stats, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t, goldie.WithFixtureDir("testdata"), goldie.WithNameSuffix(".golden"))
	g.Assert(t, "stats", append(out, '\n'))
}

func TestStats_Empty(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats models.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, models.Stats{}, stats)
}

func TestMalformedBody_IsBadRequest(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(http.MethodPost, "/api/tasks", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeObject(t, w), "error")

	w = api.do(http.MethodPost, "/api/users", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
