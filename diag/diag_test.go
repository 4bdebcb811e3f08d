package diag

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

func TestHookForwardsEntries(t *testing.T) {
	got := make(chan []byte, 4)
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			got <- msg
		}
	}))
	defer srv.Close()

	h := NewHook("ws"+strings.TrimPrefix(srv.URL, "http"), 0)
	defer h.Close()
	l := log.New()
	l.Out = ioutil.Discard
	l.AddHook(h)
	l.WithField("tick", 7).Warn("tick abandoned")

	select {
	case msg := <-got:
		var e map[string]interface{}
		if err := json.Unmarshal(msg, &e); err != nil {
			t.Fatal(err)
		}
		if e["msg"] != "tick abandoned" || e["level"] != "warning" || e["tick"] != 7.0 {
			t.Errorf("entry = %v", e)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no entry received")
	}
}

func TestHookNeverBlocks(t *testing.T) {
	h := NewHook("ws://127.0.0.1:1/unreachable", 2)
	defer h.Close()
	l := log.New()
	l.Out = ioutil.Discard
	l.AddHook(h)

	start := time.Now()
	for i := 0; i < 1000; i++ {
		l.Info("x")
	}
	if d := time.Since(start); d > time.Second {
		t.Errorf("logging took %v", d)
	}
	if h.Dropped() == 0 {
		t.Error("no entries dropped with an unreachable listener")
	}
}

func TestHookLevels(t *testing.T) {
	h := NewHook("ws://127.0.0.1:1/", 1, log.ErrorLevel)
	defer h.Close()
	if lv := h.Levels(); len(lv) != 1 || lv[0] != log.ErrorLevel {
		t.Errorf("levels = %v", lv)
	}
}

func TestSetup(t *testing.T) {
	var buf bytes.Buffer
	defer log.SetOutput(ioutil.Discard)
	Setup(&buf, true)
	log.Debug("visible")
	Setup(&buf, false)
	log.Debug("hidden")
	if !strings.Contains(buf.String(), "visible") || strings.Contains(buf.String(), "hidden") {
		t.Errorf("output = %q", buf.String())
	}
}
