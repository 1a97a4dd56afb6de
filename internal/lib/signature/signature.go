// Package signature проверяет подписи платёжного шлюза (HMAC-SHA256 в hex).
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign возвращает hex-представление HMAC-SHA256 сообщения на ключе secret.
func Sign(secret string, message []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает присланную подпись с ожидаемой за постоянное время.
// Подпись принимается только при точном совпадении байтов: регистр и пробелы
// не нормализуются. Пустой секрет или пустая подпись всегда дают false.
func Verify(secret string, message []byte, sig string) bool {
	if secret == "" || sig == "" {
		return false
	}
	expected := Sign(secret, message)
	return hmac.Equal([]byte(expected), []byte(sig))
}

// PaymentMessage собирает сообщение подтверждения оплаты: order_id|payment_id.
func PaymentMessage(orderID, paymentID string) []byte {
	return []byte(orderID + "|" + paymentID)
}
