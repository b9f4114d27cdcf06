package rewrite

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HomeLink 插入到文档站点标题前，指向 Grimoire 首页。
const HomeLink = `<a class="title" href="/">Grimoire</a>`

func init() {
	MustRegister("text/html", InsertHomeLink)
}

// InsertHomeLink 在第一个 class 含 title 的 <a> 之前插入 HomeLink；
// 已存在或找不到标题链接时原样返回。其余字节保持不变。
func InsertHomeLink(body []byte) ([]byte, error) {
	if bytes.Contains(body, []byte(HomeLink)) {
		return body, nil
	}

	z := html.NewTokenizer(bytes.NewReader(body))
	offset := 0
	for {
		tt := z.Next()
		size := len(z.Raw())
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return body, nil
			}
			return body, z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			if name, hasAttr := z.TagName(); hasAttr && string(name) == "a" && hasTitleClass(z) {
				out := make([]byte, 0, len(body)+len(HomeLink))
				out = append(out, body[:offset]...)
				out = append(out, HomeLink...)
				out = append(out, body[offset:]...)
				return out, nil
			}
		}
		offset += size
	}
}

func hasTitleClass(z *html.Tokenizer) bool {
	for {
		key, val, more := z.TagAttr()
		if string(key) == "class" {
			for _, class := range strings.Fields(string(val)) {
				if strings.EqualFold(class, "title") {
					return true
				}
			}
		}
		if !more {
			return false
		}
	}
}
