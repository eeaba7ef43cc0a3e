package convert_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/twinfer/spring-codec/pkg/convert"
	"github.com/twinfer/spring-codec/testutil"
)

// Example converts a binary program to text and back
func Example() {
	binaryData := testutil.SampleBinary()

	text, result, err := convert.BinaryToText(binaryData)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(strings.SplitN(string(text), "\n", 2)[0])
	fmt.Printf("%d rows\n", result.Diagnostics.Rows)

	reconstructed, _, err := convert.TextToBinary(text)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Round-trip successful: %v\n", string(binaryData) == string(reconstructed))

	// Output:
	// Part Number: 10KN spring
	// 9 rows
	// Round-trip successful: true
}

// Example_withOptions verifies the round trip while decoding
func Example_withOptions() {
	conv := convert.New(convert.WithVerify(true))

	result, err := conv.Decode(context.Background(), testutil.SampleBinary())
	if err != nil {
		log.Fatal(err)
	}
	diag := result.Diagnostics
	fmt.Printf("tokens=%d setup=%d rows=%d same=%v\n", diag.Tokens, diag.SetupTokens, diag.Rows, *diag.RoundTripSame)

	for _, row := range result.File.Rows[2:5] {
		fmt.Printf("%s %s %s\n", row.Label(), row.Command, row.Condition.Kind)
	}

	// Output:
	// tokens=71 setup=5 rows=9 same=true
	// R02 TH literal
	// R03 FL(P) none
	// R04 Mv(P) formula
}
