// Package rating считает средний рейтинг бизнеса по одобренным отзывам.
package rating

import "strconv"

// Summary агрегированный рейтинг.
type Summary struct {
	Average float64
	Count   int
}

// Average возвращает round(sum(ratings)/N, 1). Пустой список даёт нулевую сводку.
//
// Округляется точное двоичное значение среднего, ровная половина уходит к чётной
// цифре: 4.25 даёт 4.2, а 4.45 (в double чуть больше половины) даёт 4.5.
func Average(ratings []int) Summary {
	if len(ratings) == 0 {
		return Summary{}
	}
	var sum int
	for _, r := range ratings {
		sum += r
	}
	avg := float64(sum) / float64(len(ratings))
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(avg, 'f', 1, 64), 64)
	return Summary{Average: rounded, Count: len(ratings)}
}
