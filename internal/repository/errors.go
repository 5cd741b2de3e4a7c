package repository

import "errors"

var ErrNotFound = errors.New("not found")

// 直列化失敗・デッドロックなど、トランザクション全体を
// やり直せば通る可能性がある衝突。
var ErrConflict = errors.New("transaction conflict")
