package restfrontend

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"manageiq-vmdb/manageiq"
	"manageiq-vmdb/model"
	"manageiq-vmdb/vmdb"

	log "github.com/sirupsen/logrus"
)

func fakeManageIQ() *httptest.Server {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/vms/12" && r.Method == http.MethodGet:
			w.Write([]byte(`{"href":"` + server.URL + `/api/vms/12","id":"12","name":"vm1","actions":[{"name":"start","method":"post"}]}`))
		case r.URL.Path == "/api/vms/12" && r.Method == http.MethodPost:
			w.Write([]byte(`{"success":true,"message":"VM id:12 name:'vm1' starting"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"kind":"not_found","message":"Couldn't find resource"}}`))
		}
	}))
	return server
}

func newTestApp() *App {
	logger := log.New()
	logger.SetOutput(ioutil.Discard)
	entry := log.NewEntry(logger)

	return New(func(conn model.ConnectionInfo) (vmdb.APIClient, error) {
		return manageiq.NewClient(conn, manageiq.Options{Timeout: 10 * time.Second}, entry)
	})
}

func invoke(t *testing.T, app *App, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(http.MethodPost, "/vmdb", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	app.Router.ServeHTTP(rr, req)

	var response map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Error reading response %s: %s", rr.Body.String(), err.Error())
	}
	return rr, response
}

func TestInvokeGet(t *testing.T) {
	server := fakeManageIQ()
	defer server.Close()

	rr, response := invoke(t, newTestApp(), `{"href":"vms/12","manageiq_connection":{"url":"`+server.URL+`","token":"abc"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("Unexpected status code. Expected %d but got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	if response["name"] != "vm1" || response["changed"] != false {
		t.Fatalf("Unexpected response %v", response)
	}

	if rr.Header().Get(requestIDHeader) == "" {
		t.Fatal("Request ID header not set")
	}
}

func TestInvokeAction(t *testing.T) {
	server := fakeManageIQ()
	defer server.Close()

	req := httptest.NewRequest(http.MethodPost, "/vmdb", strings.NewReader(
		`{"vmdb":{"href":"`+server.URL+`/api/vms/12"},"action":"start","data":{},`+
			`"manageiq_connection":{"url":"`+server.URL+`","username":"admin","password":"smartvm"}}`))
	req.Header.Set(requestIDHeader, "req-1")
	rr := httptest.NewRecorder()
	newTestApp().Router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Unexpected status code. Expected %d but got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	if rr.Header().Get(requestIDHeader) != "req-1" {
		t.Fatalf("Request ID not propagated: %s", rr.Header().Get(requestIDHeader))
	}

	if strings.Contains(rr.Body.String(), "smartvm") {
		t.Fatal("Password leaked in response")
	}

	var response map[string]interface{}
	json.Unmarshal(rr.Body.Bytes(), &response)
	if response["changed"] != true || response["success"] != true {
		t.Fatalf("Unexpected response %v", response)
	}
}

func TestInvokeErrors(t *testing.T) {
	server := fakeManageIQ()
	defer server.Close()
	conn := `"manageiq_connection":{"url":"` + server.URL + `","token":"abc"}`

	cases := []struct {
		Body   string
		Status int
	}{
		{`not json`, http.StatusBadRequest},
		{`{"href":"vms/12"}`, http.StatusBadRequest},
		{`{"href":"vms/12","state":"present",` + conn + `}`, http.StatusBadRequest},
		{`{` + conn + `}`, http.StatusBadRequest},
		{`{"href":"vms/12","action":"start",` + conn + `}`, http.StatusBadRequest},
		{`{"href":"vms/12","action":"retire","data":{},` + conn + `}`, http.StatusUnprocessableEntity},
		{`{"href":"vms/13",` + conn + `}`, http.StatusNotFound},
		{`{"href":"vms/12","manageiq_connection":{"url":"http://127.0.0.1:1","token":"abc"}}`, http.StatusBadGateway},
	}

	app := newTestApp()
	for _, c := range cases {
		rr, response := invoke(t, app, c.Body)
		if rr.Code != c.Status {
			t.Fatalf("Unexpected status code for %s. Expected %d but got %d: %s", c.Body, c.Status, rr.Code, rr.Body.String())
		}

		_, hasError := response["error"]
		failed, _ := response["failed"].(bool)
		if !hasError && !failed {
			t.Fatalf("Response for %s doesn't report a failure: %v", c.Body, response)
		}
	}
}

func TestHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	newTestApp().Router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Unexpected status code. Expected %d but got %d", http.StatusOK, rr.Code)
	}

	if strings.TrimSpace(rr.Body.String()) != `{"ready":true}` {
		t.Fatalf("Unexpected health response %s", rr.Body.String())
	}
}

func TestMetrics(t *testing.T) {
	server := fakeManageIQ()
	defer server.Close()

	app := newTestApp()
	invoke(t, app, `{"href":"vms/12","manageiq_connection":{"url":"`+server.URL+`","token":"abc"}}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	app.Router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Unexpected status code. Expected %d but got %d", http.StatusOK, rr.Code)
	}

	if !strings.Contains(rr.Body.String(), `manageiq_vmdb_requests_total{operation="get",result="success"}`) {
		t.Fatalf("Request counter not exported")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/vmdb", nil)
	rr := httptest.NewRecorder()
	newTestApp().Router.ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Unexpected status code. Expected %d but got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestConcurrentInvocations(t *testing.T) {
	server := fakeManageIQ()
	defer server.Close()
	conn := `"manageiq_connection":{"url":"` + server.URL + `","username":"admin","password":"smartvm","verify_ssl":false}`

	bodies := []string{
		`{"href":"vms/12",` + conn + `}`,
		`{"href":"href_slug::vms/12","action":"start","data":{},` + conn + `}`,
		`{"href":"vms/13",` + conn + `}`,
	}
	expected := []int{http.StatusOK, http.StatusOK, http.StatusNotFound}

	app := newTestApp()
	const requests = 60
	codes := make([]int, requests)

	var wg sync.WaitGroup
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/vmdb", strings.NewReader(bodies[i%len(bodies)]))
			rr := httptest.NewRecorder()
			app.Router.ServeHTTP(rr, req)
			codes[i] = rr.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != expected[i%len(expected)] {
			t.Fatalf("Unexpected status code for request %d. Expected %d but got %d", i, expected[i%len(expected)], code)
		}
	}
}

func TestReadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/vmdb", strings.NewReader(`{"data":{"provider":{"id":12345678901234567890}}}`))

	var params map[string]interface{}
	if err := newTestApp().ReadBody(req, &params); err != nil {
		t.Fatalf("Error reading body: %s", err.Error())
	}

	id := params["data"].(map[string]interface{})["provider"].(map[string]interface{})["id"]
	if id != json.Number("12345678901234567890") {
		t.Fatalf("Number not preserved: %v", id)
	}

	req = httptest.NewRequest(http.MethodPost, "/vmdb", strings.NewReader(`{"href":`))
	if err := newTestApp().ReadBody(req, &params); err == nil {
		t.Fatal("Expected error reading truncated body")
	}
}
