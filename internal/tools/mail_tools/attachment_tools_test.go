package mail_tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestHandleListAttachments(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/messages/m1/attachments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"value":[
			{"id":"a1","name":"report.pdf","contentType":"application/pdf","size":1048576},
			{"id":"a2","name":"logo.png","contentType":"image/png","size":2048,"isInline":true}
		]}`)
	}))

	request := toolRequest("mail_list_attachments", map[string]interface{}{"messageId": "m1"})

	result, err := handleListAttachments(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleListAttachments() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "report.pdf") {
		t.Error("output should contain the attachment name")
	}
	if !strings.Contains(text, "1.00 MB") {
		t.Error("output should contain the human-readable size")
	}
}

func TestHandleListAttachmentsEmpty(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"value":[]}`)
	}))

	request := toolRequest("mail_list_attachments", map[string]interface{}{"messageId": "m1"})

	result, err := handleListAttachments(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleListAttachments() error = %v", err)
	}
	if !strings.Contains(resultText(t, result), "No attachments") {
		t.Errorf("unexpected output: %s", resultText(t, result))
	}
}

func TestHandleGetAttachment(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("plain text content"))
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"a1","name":"notes.txt","contentType":"text/plain","size":18,"contentBytes":%q}`, content)
	}))

	// text encoding returns the decoded bytes
	request := toolRequest("mail_get_attachment", map[string]interface{}{
		"messageId":    "m1",
		"attachmentId": "a1",
		"encoding":     "text",
	})
	result, err := handleGetAttachment(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleGetAttachment() error = %v", err)
	}
	if !strings.Contains(resultText(t, result), "plain text content") {
		t.Errorf("unexpected output: %s", resultText(t, result))
	}

	// default base64 encoding round-trips the content
	request = toolRequest("mail_get_attachment", map[string]interface{}{
		"messageId":    "m1",
		"attachmentId": "a1",
	})
	result, err = handleGetAttachment(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleGetAttachment() error = %v", err)
	}
	if !strings.Contains(resultText(t, result), content) {
		t.Errorf("base64 output should contain the encoded content: %s", resultText(t, result))
	}
}

func TestHandleGetAttachmentInvalidEncoding(t *testing.T) {
	sc := newUnauthenticatedContext(t)

	request := toolRequest("mail_get_attachment", map[string]interface{}{
		"messageId":    "m1",
		"attachmentId": "a1",
		"encoding":     "hex",
	})

	result, err := handleGetAttachment(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleGetAttachment() error = %v", err)
	}
	if !result.IsError {
		t.Error("expected an error result for an unknown encoding")
	}
}

func TestHandleGetAttachmentTextNonPDF(t *testing.T) {
	content := base64.StdEncoding.EncodeToString([]byte("just text"))
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"a1","name":"notes.txt","contentType":"text/plain","contentBytes":%q}`, content)
	}))

	request := toolRequest("mail_get_attachment_text", map[string]interface{}{
		"messageId":    "m1",
		"attachmentId": "a1",
	})

	result, err := handleGetAttachmentText(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleGetAttachmentText() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for a non-PDF attachment")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "unsupported_attachment:") {
		t.Errorf("expected the stable error kind prefix, got: %s", text)
	}
	if !strings.Contains(text, "not a PDF") {
		t.Errorf("unexpected output: %s", text)
	}
}

func TestHandleGetAttachmentTextCorruptPDF(t *testing.T) {
	// Carries the PDF magic but no valid structure; extraction reports a
	// structured failure instead of erroring out.
	content := base64.StdEncoding.EncodeToString([]byte("%PDF-1.7 not really a pdf"))
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":"a1","name":"broken.pdf","contentType":"application/pdf","contentBytes":%q}`, content)
	}))

	request := toolRequest("mail_get_attachment_text", map[string]interface{}{
		"messageId":    "m1",
		"attachmentId": "a1",
	})

	result, err := handleGetAttachmentText(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleGetAttachmentText() error = %v", err)
	}
	if result.IsError {
		t.Fatalf("corrupt PDFs should yield a structured result, got error: %s", resultText(t, result))
	}

	var output struct {
		Name    string `json:"name"`
		Success bool   `json:"success"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), &output); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if output.Success {
		t.Error("expected success=false for a corrupt document")
	}
	if output.Reason == "" {
		t.Error("expected a reason for the failure")
	}
	if output.Name != "broken.pdf" {
		t.Errorf("expected attachment name in output, got %q", output.Name)
	}
}

func TestHandleGetAttachmentTextValidation(t *testing.T) {
	sc := newUnauthenticatedContext(t)

	for name, args := range map[string]map[string]interface{}{
		"missing messageId":    {"attachmentId": "a1"},
		"missing attachmentId": {"messageId": "m1"},
	} {
		t.Run(name, func(t *testing.T) {
			result, err := handleGetAttachmentText(context.Background(), toolRequest("mail_get_attachment_text", args), sc)
			if err != nil {
				t.Fatalf("handleGetAttachmentText() error = %v", err)
			}
			if !result.IsError {
				t.Error("expected an error result")
			}
		})
	}
}

func TestHandleGetAttachmentTextNoContent(t *testing.T) {
	sc := newTestContext(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"a1","name":"item.eml","contentType":"message/rfc822"}`)
	}))

	request := toolRequest("mail_get_attachment_text", map[string]interface{}{
		"messageId":    "m1",
		"attachmentId": "a1",
	})

	result, err := handleGetAttachmentText(context.Background(), request, sc)
	if err != nil {
		t.Fatalf("handleGetAttachmentText() error = %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result for an attachment without content")
	}
	if !strings.Contains(resultText(t, result), "unsupported_attachment") {
		t.Errorf("error result should carry the error kind: %s", resultText(t, result))
	}
}
