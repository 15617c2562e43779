package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const newPostResponse = `<?xml version="1.0" encoding="UTF-8"?>
<methodResponse>
  <params>
    <param><value><string>42</string></value></param>
  </params>
</methodResponse>`

const faultResponse = `<?xml version="1.0" encoding="UTF-8"?>
<methodResponse>
  <fault>
    <value>
      <struct>
        <member><name>faultCode</name><value><int>403</int></value></member>
        <member><name>faultString</name><value><string>Incorrect username or password.</string></value></member>
      </struct>
    </value>
  </fault>
</methodResponse>`

// xmlrpcServer serves a fixed response and captures the parsed request
func xmlrpcServer(t *testing.T, status int, response string) (*httptest.Server, *etree.Document) {
	t.Helper()
	captured := etree.NewDocument()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xmlrpc.php", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/xml", r.Header.Get("Content-Type"))
		if _, err := captured.ReadFrom(r.Body); err != nil {
			t.Errorf("reading request: %v", err)
		}
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func samplePost() *Post {
	return &Post{
		Title:        "Review & more",
		Content:      "<p>Hello</p>",
		Status:       "draft",
		Categories:   []string{"AI Tools"},
		Tags:         []string{"AI", "Review"},
		CustomFields: []CustomField{{Key: "meta_description", Value: "Summary"}},
	}
}

func TestWordPressNewPost(t *testing.T) {
	server, captured := xmlrpcServer(t, http.StatusOK, newPostResponse)
	client := NewWordPressClient(server.URL+"/", "admin", "secret")

	id, err := client.NewPost(context.Background(), samplePost())
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	root := captured.Root()
	require.NotNil(t, root)
	assert.Equal(t, "wp.newPost", root.FindElement("methodName").Text())

	params := root.FindElements("params/param/value")
	require.Len(t, params, 4)
	assert.Equal(t, "0", params[0].FindElement("int").Text())
	assert.Equal(t, "admin", params[1].FindElement("string").Text())
	assert.Equal(t, "secret", params[2].FindElement("string").Text())

	members := map[string]*etree.Element{}
	for _, m := range params[3].FindElements("struct/member") {
		members[m.FindElement("name").Text()] = m.FindElement("value")
	}
	assert.Equal(t, "post", members["post_type"].FindElement("string").Text())
	assert.Equal(t, "draft", members["post_status"].FindElement("string").Text())
	assert.Equal(t, "Review & more", members["post_title"].FindElement("string").Text())
	assert.Equal(t, "<p>Hello</p>", members["post_content"].FindElement("string").Text())

	terms := members["terms_names"]
	require.NotNil(t, terms)
	var tags []string
	for _, m := range terms.FindElements("struct/member") {
		if m.FindElement("name").Text() != "post_tag" {
			continue
		}
		for _, s := range m.FindElements("value/array/data/value/string") {
			tags = append(tags, s.Text())
		}
	}
	assert.Equal(t, []string{"AI", "Review"}, tags)

	fields := members["custom_fields"]
	require.NotNil(t, fields)
	field := fields.FindElements("array/data/value/struct/member")
	require.Len(t, field, 2)
	assert.Equal(t, "meta_description", field[0].FindElement("value/string").Text())
	assert.Equal(t, "Summary", field[1].FindElement("value/string").Text())
}

func TestWordPressFault(t *testing.T) {
	server, _ := xmlrpcServer(t, http.StatusOK, faultResponse)
	client := NewWordPressClient(server.URL, "admin", "wrong")

	_, err := client.NewPost(context.Background(), samplePost())

	var fault *XMLRPCFault
	require.True(t, errors.As(err, &fault))
	assert.Equal(t, 403, fault.Code)
	assert.Equal(t, "Incorrect username or password.", fault.Message)
}

func TestWordPressHTTPError(t *testing.T) {
	server, _ := xmlrpcServer(t, http.StatusInternalServerError, "oops")
	client := NewWordPressClient(server.URL, "admin", "secret")

	_, err := client.NewPost(context.Background(), samplePost())

	var statusErr *HTTPStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestDecodeMethodResponse(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
		wantErr  bool
	}{
		{
			name:     "untyped value",
			body:     `<methodResponse><params><param><value>17</value></param></params></methodResponse>`,
			expected: "17",
		},
		{
			name:     "int value",
			body:     `<methodResponse><params><param><value><int>8</int></value></param></params></methodResponse>`,
			expected: "8",
		},
		{
			name:    "no value",
			body:    `<methodResponse><params></params></methodResponse>`,
			wantErr: true,
		},
		{
			name:    "wrong root",
			body:    `<html><body>not xml-rpc</body></html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeMethodResponse(strings.NewReader(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEncodeValueRejectsUnknownTypes(t *testing.T) {
	_, err := encodeMethodCall("x", 1.5)
	assert.Error(t, err)
}
