package host

import (
	"encoding/json"
	"testing"
	"time"
)

func TestActionUserMessage(t *testing.T) {
	data, err := json.Marshal(UserMessage("explain main.go"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"user_message","content":"explain main.go"}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestActionOmitsEmptyFields(t *testing.T) {
	for _, a := range []Action{NewConversation(), GetConversationList(), CancelTask()} {
		data, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}

		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("unmarshal raw: %v", err)
		}
		if len(raw) != 1 {
			t.Errorf("%s should only carry type, got %v", a.Type, raw)
		}
	}
}

func TestActionPermissionResponseKeepsFalse(t *testing.T) {
	data, err := json.Marshal(PermissionResponse("p1", false))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"permission_response","requestId":"p1","approved":false}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestActionConversationTargets(t *testing.T) {
	if a := SwitchConversation("c1"); a.Type != ActionSwitchConversation || a.ConversationID != "c1" {
		t.Errorf("switch = %+v", a)
	}
	if a := DeleteConversation("c2"); a.Type != ActionDeleteConversation || a.ConversationID != "c2" {
		t.Errorf("delete = %+v", a)
	}
	if a := ModeChange("plan"); a.Type != ActionModeChange || a.Mode != "plan" {
		t.Errorf("mode = %+v", a)
	}
}

func TestEventToolResult(t *testing.T) {
	j := `{"type":"tool_result","toolCallId":"t1","toolName":"read_file","content":"hello","isError":true}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.ToolCallID != "t1" || ev.ToolName != "read_file" {
		t.Errorf("ids = %q/%q", ev.ToolCallID, ev.ToolName)
	}
	if ev.Content != "hello" {
		t.Errorf("content = %q, want %q", ev.Content, "hello")
	}
	if !ev.IsError {
		t.Error("isError = false, want true")
	}
}

func TestEventPermissionRequest(t *testing.T) {
	j := `{"type":"permission_request","request":{"id":"p1","toolName":"write_file","operation":"write","target":"a.go","details":"+1 -0"}}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Request == nil {
		t.Fatal("request = nil")
	}
	if ev.Request.ID != "p1" || ev.Request.Target != "a.go" || ev.Request.Details != "+1 -0" {
		t.Errorf("request = %+v", ev.Request)
	}
}

func TestEventConversationHistory(t *testing.T) {
	j := `{"type":"conversation_history","messages":[
		{"role":"user","content":"hi","timestamp":1700000000000},
		{"role":"assistant","content":"hello","toolCalls":[{"id":"t1","name":"read_file","params":{"path":"x"}}]},
		{"role":"tool","content":"","toolResults":[{"toolCallId":"t1","toolName":"read_file","content":["a","b"]}]}
	]}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(ev.Messages) != 3 {
		t.Fatalf("messages = %d, want 3", len(ev.Messages))
	}
	if got := ev.Messages[0].Time(); !got.Equal(time.UnixMilli(1700000000000)) {
		t.Errorf("time = %v", got)
	}
	if !ev.Messages[1].Time().IsZero() {
		t.Error("missing timestamp should be zero time")
	}
	if len(ev.Messages[1].ToolCalls) != 1 || ev.Messages[1].ToolCalls[0].Name != "read_file" {
		t.Errorf("toolCalls = %+v", ev.Messages[1].ToolCalls)
	}
	if got := ev.Messages[2].ToolResults[0].Content; got != `["a","b"]` {
		t.Errorf("result content = %q", got)
	}
}

func TestEventConversationList(t *testing.T) {
	j := `{"type":"conversation_list","conversations":[{"id":"c1","timestamp":1,"messageCount":4,"preview":"fix tests","isCurrent":true}]}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(ev.Conversations) != 1 {
		t.Fatalf("conversations = %d", len(ev.Conversations))
	}
	c := ev.Conversations[0]
	if c.ID != "c1" || c.MessageCount != 4 || !c.IsCurrent {
		t.Errorf("conversation = %+v", c)
	}
}

func TestEventTokenUsageTotal(t *testing.T) {
	j := `{"type":"token_usage","usage":{"inputTokens":120,"outputTokens":30}}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Usage == nil || ev.Usage.Total() != 150 {
		t.Errorf("usage = %+v", ev.Usage)
	}
}

func TestEventSetInputValueEmpty(t *testing.T) {
	j := `{"type":"set_input_value","value":""}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Value == nil || *ev.Value != "" {
		t.Errorf("value = %v, want pointer to empty string", ev.Value)
	}
}

func TestEventUnknownFieldsIgnored(t *testing.T) {
	j := `{"type":"shiny_new_thing","whatever":{"nested":true}}`

	var ev Event
	if err := json.Unmarshal([]byte(j), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Type != "shiny_new_thing" {
		t.Errorf("type = %q", ev.Type)
	}
}

func TestTextNull(t *testing.T) {
	var ev Event
	if err := json.Unmarshal([]byte(`{"type":"stream_chunk","content":null}`), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Content != "" {
		t.Errorf("content = %q, want empty", ev.Content)
	}
}

func TestBoolPtr(t *testing.T) {
	p := BoolPtr(true)
	if p == nil || !*p {
		t.Error("BoolPtr(true) should return pointer to true")
	}

	p = BoolPtr(false)
	if p == nil || *p {
		t.Error("BoolPtr(false) should return pointer to false")
	}
}
