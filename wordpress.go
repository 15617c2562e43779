package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

// Post is a CMS post ready for submission
type Post struct {
	Title        string
	Content      string
	Status       string
	Categories   []string
	Tags         []string
	CustomFields []CustomField
}

// CustomField is a post meta entry
type CustomField struct {
	Key   string
	Value string
}

// Poster creates posts in a CMS
type Poster interface {
	NewPost(ctx context.Context, post *Post) (int64, error)
}

// XMLRPCFault is a fault response from the XML-RPC endpoint
type XMLRPCFault struct {
	Code    int
	Message string
}

func (f *XMLRPCFault) Error() string {
	return fmt.Sprintf("XML-RPC fault %d: %s", f.Code, f.Message)
}

// WordPressClient talks to the WordPress XML-RPC endpoint
type WordPressClient struct {
	endpoint string
	username string
	password string
	client   *http.Client
}

// NewWordPressClient creates a client for the site at baseURL
func NewWordPressClient(baseURL, username, password string) *WordPressClient {
	return &WordPressClient{
		endpoint: strings.TrimRight(baseURL, "/") + "/xmlrpc.php",
		username: username,
		password: password,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

var _ Poster = (*WordPressClient)(nil)

// member and rpcStruct keep struct members in a stable order on the wire
type member struct {
	name  string
	value any
}

type rpcStruct []member

// NewPost calls wp.newPost and returns the new post id.
func (c *WordPressClient) NewPost(ctx context.Context, post *Post) (int64, error) {
	content := rpcStruct{
		{"post_type", "post"},
		{"post_status", post.Status},
		{"post_title", post.Title},
		{"post_content", post.Content},
	}
	if len(post.Categories) > 0 {
		content = append(content, member{"terms_names", rpcStruct{
			{"category", post.Categories},
			{"post_tag", post.Tags},
		}})
	}
	if len(post.CustomFields) > 0 {
		fields := make([]any, 0, len(post.CustomFields))
		for _, f := range post.CustomFields {
			fields = append(fields, rpcStruct{{"key", f.Key}, {"value", f.Value}})
		}
		content = append(content, member{"custom_fields", fields})
	}

	value, err := c.call(ctx, "wp.newPost", 0, c.username, c.password, content)
	if err != nil {
		return 0, err
	}

	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected post id %q: %w", value, err)
	}
	return id, nil
}

// call performs one XML-RPC call and returns the scalar text of the result.
func (c *WordPressClient) call(ctx context.Context, method string, params ...any) (string, error) {
	body, err := encodeMethodCall(method, params...)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPStatusError{StatusCode: resp.StatusCode, URL: c.endpoint}
	}

	debugLog("%s response: status=%d", method, resp.StatusCode)
	return decodeMethodResponse(resp.Body)
}

func encodeMethodCall(method string, params ...any) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	call := doc.CreateElement("methodCall")
	call.CreateElement("methodName").SetText(method)
	paramsEl := call.CreateElement("params")
	for _, p := range params {
		if err := encodeValue(paramsEl.CreateElement("param"), p); err != nil {
			return nil, err
		}
	}
	return doc.WriteToBytes()
}

func encodeValue(parent *etree.Element, v any) error {
	value := parent.CreateElement("value")
	switch v := v.(type) {
	case string:
		value.CreateElement("string").SetText(v)
	case int:
		value.CreateElement("int").SetText(strconv.Itoa(v))
	case bool:
		b := "0"
		if v {
			b = "1"
		}
		value.CreateElement("boolean").SetText(b)
	case []string:
		data := value.CreateElement("array").CreateElement("data")
		for _, s := range v {
			data.CreateElement("value").CreateElement("string").SetText(s)
		}
	case []any:
		data := value.CreateElement("array").CreateElement("data")
		for _, item := range v {
			// encodeValue adds its own <value>, so encode into a detached parent.
			holder := etree.NewElement("holder")
			if err := encodeValue(holder, item); err != nil {
				return err
			}
			data.AddChild(holder.SelectElement("value"))
		}
	case rpcStruct:
		st := value.CreateElement("struct")
		for _, m := range v {
			mem := st.CreateElement("member")
			mem.CreateElement("name").SetText(m.name)
			if err := encodeValue(mem, m.value); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unsupported XML-RPC value %T", v)
	}
	return nil
}

func decodeMethodResponse(r io.Reader) (string, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return "", fmt.Errorf("parsing XML-RPC response: %w", err)
	}

	root := doc.Root()
	if root == nil || root.Tag != "methodResponse" {
		return "", fmt.Errorf("malformed XML-RPC response")
	}

	if fault := root.FindElement("fault/value/struct"); fault != nil {
		f := &XMLRPCFault{}
		for _, mem := range fault.SelectElements("member") {
			name := mem.SelectElement("name")
			val := mem.SelectElement("value")
			if name == nil || val == nil {
				continue
			}
			switch name.Text() {
			case "faultCode":
				f.Code, _ = strconv.Atoi(scalarText(val))
			case "faultString":
				f.Message = scalarText(val)
			}
		}
		return "", f
	}

	val := root.FindElement("params/param/value")
	if val == nil {
		return "", fmt.Errorf("XML-RPC response has no value")
	}
	return scalarText(val), nil
}

// scalarText returns the text of a <value>, typed or untyped.
func scalarText(value *etree.Element) string {
	if children := value.ChildElements(); len(children) > 0 {
		return strings.TrimSpace(children[0].Text())
	}
	return strings.TrimSpace(value.Text())
}
