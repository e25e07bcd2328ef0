package ledger

import (
	"fmt"
	"io"
)

// Client speaks the frame protocol over an established stream. It is not
// safe for concurrent use; frames go out in call order and every Query
// waits for its own answer.
type Client struct {
	rw io.ReadWriter
}

func NewClient(rw io.ReadWriter) *Client {
	return &Client{rw: rw}
}

// Send writes one frame. Insert frames get no answer.
func (c *Client) Send(f Frame) error {
	raw := f.Encode()
	if _, err := c.rw.Write(raw[:]); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Client) Insert(timestamp, price int32) error {
	return c.Send(InsertFrame(timestamp, price))
}

// Query asks for the mean price over [minTime, maxTime] and waits for the answer.
func (c *Client) Query(minTime, maxTime int32) (int32, error) {
	if err := c.Send(QueryFrame(minTime, maxTime)); err != nil {
		return 0, err
	}
	return c.ReadResponse()
}

// ReadResponse reads one 4-byte answer.
func (c *Client) ReadResponse() (int32, error) {
	var raw [ResponseSize]byte
	if _, err := io.ReadFull(c.rw, raw[:]); err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	return DecodeResponse(raw), nil
}
