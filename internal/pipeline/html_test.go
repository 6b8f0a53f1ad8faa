package pipeline

import (
	"strings"
	"testing"
)

func TestVisibleText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "blocks become lines",
			html: `<div><h1>Decision</h1><p>Granted.</p></div><ul><li>One</li><li>Two</li></ul>`,
			want: "Decision\nGranted.\nOne\nTwo",
		},
		{
			name: "inline elements join words",
			html: `<p>Service <em>connection</em> for <b>PTSD</b>, 30%.</p>`,
			want: "Service connection for PTSD, 30%.",
		},
		{
			name: "scripts and styles skipped",
			html: `<html><head><title>T</title></head><body><script>alert(1)</script><style>.a{}</style><noscript>enable js</noscript><p>Body</p></body></html>`,
			want: "Body",
		},
		{
			name: "line breaks",
			html: `<p>Page 1 of 3<br>Evidence</p>`,
			want: "Page 1 of 3\nEvidence",
		},
		{
			name: "table cells",
			html: `<table><tr><td>Tinnitus</td><td>10%</td></tr><tr><td>PTSD</td><td>30%</td></tr></table>`,
			want: "Tinnitus 10%\nPTSD 30%",
		},
		{
			name: "whitespace collapsed",
			html: "<p>  Reasons\n\t for   Decision  </p>",
			want: "Reasons for Decision",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VisibleText(strings.NewReader(tt.html))
			if err != nil {
				t.Fatalf("VisibleText failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("VisibleText() = %q, want %q", got, tt.want)
			}
		})
	}
}
