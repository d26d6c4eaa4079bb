package utils

import "fmt"

// FormatSeconds выводит накопленные секунды как ЧЧ:ММ — формат отчётов по
// рабочему времени.
func FormatSeconds(total int64) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d", total/3600, (total%3600)/60)
}
