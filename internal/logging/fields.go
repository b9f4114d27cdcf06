package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// BuildFields 提供构建流水线日志使用的包名与构建 ID 字段。
func BuildFields(pkg, buildID string) logrus.Fields {
	return logrus.Fields{
		"action":   "build",
		"package":  pkg,
		"build_id": buildID,
	}
}

// RequestFields 提供包名/子路径/请求 ID 字段，供文档请求日志复用。
func RequestFields(pkg, subpath, requestID string) logrus.Fields {
	fields := logrus.Fields{
		"action":  "serve_docs",
		"package": pkg,
		"subpath": subpath,
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	return fields
}
