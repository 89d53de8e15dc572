package managers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"dialogue-tutor/work-flows/client"
	"dialogue-tutor/work-flows/models"
)

// fakeTutor is an in-process Tutoring Service. Fields may be set before the
// server is used; counters are read through calls().
type fakeTutor struct {
	mu      sync.Mutex
	counts  map[string]int
	replies int

	lastRespond models.RespondRequest
	lastReview  models.ReviewRequest

	// startGate, when set, holds start-dialogue until it is closed.
	startGate chan struct{}
	// startSeen receives once per start-dialogue request that reached the server.
	startSeen chan struct{}

	failStart     bool
	failRespond   bool
	respondBody   string
	malformReview bool
	reviewBody    string
	feedback      bool
}

func newFakeTutor(t *testing.T) (*fakeTutor, client.TutorClient) {
	t.Helper()
	ft := &fakeTutor{counts: make(map[string]int)}
	server := httptest.NewServer(http.HandlerFunc(ft.serve))
	t.Cleanup(server.Close)
	return ft, client.NewTutorClient(server.URL + "/api")
}

func (ft *fakeTutor) calls(endpoint string) int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.counts[endpoint]
}

func (ft *fakeTutor) serve(w http.ResponseWriter, r *http.Request) {
	endpoint := strings.TrimPrefix(r.URL.Path, "/api")

	ft.mu.Lock()
	ft.counts[endpoint]++
	gate, seen, failStart := ft.startGate, ft.startSeen, ft.failStart
	ft.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch endpoint {
	case client.EndpointStartDialogue:
		var req models.StartDialogueRequest
		json.NewDecoder(r.Body).Decode(&req)
		if seen != nil {
			seen <- struct{}{}
		}
		if gate != nil {
			<-gate
		}
		if failStart {
			http.Error(w, "tutor unavailable", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"situation_zh":        "你在一家中国餐馆",
			"situation_en":        "You are in a Chinese restaurant",
			"initial_line_zh":     "您好，请问想吃点什么？",
			"initial_line_pinyin": "nín hǎo, qǐng wèn xiǎng chī diǎn shén me?",
			"initial_line_en":     "Hello, what would you like to eat?",
		})

	case client.EndpointRespond:
		var req models.RespondRequest
		json.NewDecoder(r.Body).Decode(&req)

		ft.mu.Lock()
		ft.lastRespond = req
		ft.replies++
		n := ft.replies
		fail, feedback, custom := ft.failRespond, ft.feedback, ft.respondBody
		ft.mu.Unlock()

		if fail {
			http.Error(w, "tutor unavailable", http.StatusBadGateway)
			return
		}
		if custom != "" {
			w.Write([]byte(custom))
			return
		}

		body := map[string]any{
			"next_line_zh":     "好的，第" + strings.Repeat("一", n) + "次",
			"next_line_pinyin": "hǎo de",
			"next_line_en":     "OK",
		}
		if feedback {
			body["evaluation"] = "evaluation " + strings.Repeat("+", n)
			body["suggested_words"] = []string{"菜单", strings.Repeat("好", n)}
		}
		json.NewEncoder(w).Encode(body)

	case client.EndpointReview:
		var req models.ReviewRequest
		json.NewDecoder(r.Body).Decode(&req)

		ft.mu.Lock()
		ft.lastReview = req
		body, malformed := ft.reviewBody, ft.malformReview
		ft.mu.Unlock()

		if malformed {
			w.Write([]byte("{not json"))
			return
		}
		if body == "" {
			body = `{
				"overall_feedback": "很好",
				"grammar_feedback": [{"original":"我要面","correction":"我想要一碗面","explanation":"more polite","example":"我想要一杯茶"}],
				"vocabulary_review": [{"word":"菜单","pinyin":"cài dān","meaning":"menu","usage_note":"asking for the menu"}]
			}`
		}
		w.Write([]byte(body))

	default:
		http.NotFound(w, r)
	}
}

func (ft *fakeTutor) configure(fn func(*fakeTutor)) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	fn(ft)
}

func (ft *fakeTutor) respondReq() models.RespondRequest {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.lastRespond
}

func (ft *fakeTutor) reviewReq() models.ReviewRequest {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return ft.lastReview
}
