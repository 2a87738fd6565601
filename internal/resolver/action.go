package resolver

// Action is one of Redirect, Inline or Attachment
type Action interface {
	action()
}

// Redirect sends the client to the code's content
type Redirect struct {
	URL string
}

// Inline is a self-contained viewer page
type Inline struct {
	ContentType string
	Body        []byte
}

// Attachment is the raw content served as a file download
type Attachment struct {
	ContentType string
	Filename    string
	Body        []byte
}

func (Redirect) action()   {}
func (Inline) action()     {}
func (Attachment) action() {}
