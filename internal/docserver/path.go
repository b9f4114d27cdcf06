package docserver

import (
	"net/url"
	"strings"
)

// ParsePath 从原始请求路径中拆出包名与子路径。scoped 包（@scope/name）占用两段，
// 也接受整体编码的 %40scope%2Fname。trailingSlash 表示包名之后是否还有 "/"。
func ParsePath(rawPath string) (pkg, subpath string, trailingSlash bool, ok bool) {
	trimmed := strings.TrimPrefix(rawPath, "/")
	if trimmed == "" {
		return "", "", false, false
	}

	first, rest, found := strings.Cut(trimmed, "/")
	name, err := url.PathUnescape(first)
	if err != nil {
		return "", "", false, false
	}

	switch {
	case strings.HasPrefix(name, "@") && !strings.Contains(name, "/"):
		if !found {
			return "", "", false, false
		}
		var second string
		second, rest, found = strings.Cut(rest, "/")
		second, err = url.PathUnescape(second)
		if err != nil {
			return "", "", false, false
		}
		name = name + "/" + second
	case strings.Contains(name, "/") && !strings.HasPrefix(name, "@"):
		return "", "", false, false
	}

	if !validPackageName(name) {
		return "", "", false, false
	}

	if found {
		subpath, err = url.PathUnescape(rest)
		if err != nil {
			return "", "", false, false
		}
	}
	return name, subpath, found, true
}

func validPackageName(name string) bool {
	if name == "" || strings.ContainsAny(name, " \\") {
		return false
	}
	scope, base, scoped := strings.Cut(name, "/")
	if scoped {
		if len(scope) < 2 || strings.Contains(base, "/") {
			return false
		}
		return validSegment(scope[1:]) && validSegment(base)
	}
	return validSegment(name)
}

func validSegment(segment string) bool {
	return segment != "" && segment != "." && segment != ".." && !strings.HasPrefix(segment, ".")
}

// PackagePath 返回包文档根路径，scoped 包保留 "/" 分隔。
func PackagePath(pkg string) string {
	scope, base, scoped := strings.Cut(pkg, "/")
	if scoped {
		return "/" + url.PathEscape(scope) + "/" + url.PathEscape(base) + "/"
	}
	return "/" + url.PathEscape(pkg) + "/"
}
