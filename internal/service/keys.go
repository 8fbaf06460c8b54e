// Package service собирает правила, хранилища и часы в операции жизненного цикла.
package service

import "fmt"

func MeetupKey(id int64) string { return fmt.Sprintf("meetup:%d", id) }

func UserKey(id int64) string { return fmt.Sprintf("user:%d", id) }

// Result возвращает метку исхода для метрик, "ok" или вид ошибки.
func Result(err error, kind func(error) string) string {
	if err == nil {
		return "ok"
	}
	return kind(err)
}
