package dynamostore

import (
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/goliatone/go-webhooks/core"
)

// Key attributes for this table are all strings, so the opaque cursor maps
// one-to-one onto a string-member attribute map.

func decodeCursor(cursor core.Cursor) map[string]types.AttributeValue {
	if len(cursor) == 0 {
		return nil
	}
	decoded := make(map[string]types.AttributeValue, len(cursor))
	for key, value := range cursor {
		decoded[key] = &types.AttributeValueMemberS{Value: value}
	}
	return decoded
}

func encodeCursor(key map[string]types.AttributeValue) core.Cursor {
	if len(key) == 0 {
		return nil
	}
	encoded := make(core.Cursor, len(key))
	for name, value := range key {
		if member, ok := value.(*types.AttributeValueMemberS); ok {
			encoded[name] = member.Value
		}
	}
	if len(encoded) == 0 {
		return nil
	}
	return encoded
}
