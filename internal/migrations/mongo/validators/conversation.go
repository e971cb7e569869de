package validators

import "go.mongodb.org/mongo-driver/bson"

var ConversationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"booking_id", "participant_ids", "created_at"},
		"properties": bson.M{
			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"participant_ids": bson.M{
				"bsonType":    "array",
				"minItems":    1,
				"uniqueItems": true,
				"items":       bson.M{"bsonType": "string"},
			},
			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}

var MessageValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"conversation_id", "sender_id", "body", "created_at"},
		"properties": bson.M{
			"conversation_id": bson.M{"bsonType": "string"},
			"sender_id":       bson.M{"bsonType": "string"},
			"body": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 4000,
			},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
