package handler

import (
	"lobbychat/internal/app/chat"
	"lobbychat/internal/configs"
)

// AppDeps carries everything the HTTP handlers need.
type AppDeps struct {
	Manager *chat.Manager
	Config  *configs.AppConfig
}
