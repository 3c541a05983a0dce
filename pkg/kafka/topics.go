package kafka

// TopicPrefix namespaces every topic published by this service.
const TopicPrefix = "accounts"

// Topic builds a topic name of the form "<prefix>.<aggregate>.<action>".
func Topic(aggregate, action string) string {
	return TopicPrefix + "." + aggregate + "." + action
}
