//go:build !race

package membership

func passwordHashCost() int {
	return 14
}
