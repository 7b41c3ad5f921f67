// CloudScope - AWS Inventory Dashboard
// Store profiles. Scan accounts. See everything.
package main

func main() {
	Execute()
}
