package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// PackageFields 提供包名/版本/制品路径字段，供解析流程日志复用。
func PackageFields(name, version, path string) logrus.Fields {
	return logrus.Fields{
		"package": name,
		"version": version,
		"path":    path,
	}
}

// RequestFields 提供镜像服务请求日志的公共字段。
func RequestFields(requestID, method, path string, status int, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
		"cache_hit":  cacheHit,
	}
}
