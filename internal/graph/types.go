package graph

// EmailAddress is a Graph emailAddress object.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// Recipient wraps an EmailAddress the way Graph nests it.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// ItemBody is a Graph itemBody: content plus its type ("text" or "html").
type ItemBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// MessageSummary is the trimmed listing shape returned by ListMessages.
type MessageSummary struct {
	ID               string      `json:"id"`
	Subject          string      `json:"subject"`
	From             *Recipient  `json:"from,omitempty"`
	ReceivedDateTime string      `json:"receivedDateTime"`
	IsRead           bool        `json:"isRead"`
	HasAttachments   bool        `json:"hasAttachments"`
	BodyPreview      string      `json:"bodyPreview,omitempty"`
	ToRecipients     []Recipient `json:"toRecipients,omitempty"`
}

// Message is the full message shape returned by GetMessage.
type Message struct {
	ID               string      `json:"id"`
	Subject          string      `json:"subject"`
	From             *Recipient  `json:"from,omitempty"`
	ToRecipients     []Recipient `json:"toRecipients,omitempty"`
	CcRecipients     []Recipient `json:"ccRecipients,omitempty"`
	ReceivedDateTime string      `json:"receivedDateTime"`
	SentDateTime     string      `json:"sentDateTime,omitempty"`
	IsRead           bool        `json:"isRead"`
	HasAttachments   bool        `json:"hasAttachments"`
	Body             *ItemBody   `json:"body,omitempty"`
	ParentFolderID   string      `json:"parentFolderId,omitempty"`
	WebLink          string      `json:"webLink,omitempty"`
}

// Attachment is a Graph fileAttachment. ContentBytes is base64 and only
// populated when a single attachment is fetched by ID.
type Attachment struct {
	ODataType    string `json:"@odata.type,omitempty"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
	IsInline     bool   `json:"isInline"`
	ContentBytes string `json:"contentBytes,omitempty"`
}

// Folder is a Graph mailFolder.
type Folder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ParentFolderID   string `json:"parentFolderId,omitempty"`
	UnreadItemCount  int    `json:"unreadItemCount"`
	TotalItemCount   int    `json:"totalItemCount"`
	ChildFolderCount int    `json:"childFolderCount"`
}

// Profile is the subset of the Graph user object the server exposes.
type Profile struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	JobTitle          string `json:"jobTitle,omitempty"`
	OfficeLocation    string `json:"officeLocation,omitempty"`
}

// OutgoingAttachment is an attachment to include in a sent message.
// Content is the raw bytes; the client base64-encodes them on the wire.
type OutgoingAttachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// OutgoingMessage describes a message to send.
type OutgoingMessage struct {
	To          []string
	Cc          []string
	Subject     string
	Body        string
	// BodyType is "Text" or "HTML"; empty defaults to "Text".
	BodyType    string
	Attachments []OutgoingAttachment
}

// MessagePage is one page of a message listing.
type MessagePage struct {
	Messages []MessageSummary
	// NextLink is the opaque @odata.nextLink for the following page, empty
	// on the last page.
	NextLink string
}

// listEnvelope is the OData collection wrapper Graph puts around every
// listing response.
type listEnvelope[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// graphErrorBody is the error envelope Graph returns on non-2xx responses.
type graphErrorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
