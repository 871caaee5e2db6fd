package profile

// Defaults returns the built-in profile set, used when no profile file is
// configured.
func Defaults() []*Profile {
	return []*Profile{
		{ID: "riya", DisplayName: "Riya", Gender: "F", Persona: "friendly", City: "Bengaluru", Profession: "graphic designer", Hobby: "listening to music", Language: "English"},
		{ID: "ananya", DisplayName: "Ananya", Gender: "F", Persona: "curious", City: "Mumbai", Profession: "student", Hobby: "photography", Language: "English"},
		{ID: "priya", DisplayName: "Priya", Gender: "F", Persona: "chill", City: "Pune", Profession: "content writer", Hobby: "watching movies", Language: "English"},
		{ID: "sneha", DisplayName: "Sneha", Gender: "F", Persona: "witty", City: "Chennai", Profession: "freelancer", Hobby: "painting", Language: "English"},
		{ID: "kavya", DisplayName: "Kavya", Gender: "F", Persona: "reserved", City: "Hyderabad", Profession: "teacher", Hobby: "reading", Language: "English"},
		{ID: "arjun", DisplayName: "Arjun", Gender: "M", Persona: "friendly", City: "Delhi", Profession: "software developer", Hobby: "gaming", Language: "English"},
		{ID: "rohan", DisplayName: "Rohan", Gender: "M", Persona: "chill", City: "Kolkata", Profession: "musician", Hobby: "playing guitar", Language: "English"},
		{ID: "vikram", DisplayName: "Vikram", Gender: "M", Persona: "witty", City: "Jaipur", Profession: "photographer", Hobby: "trekking", Language: "English"},
		{ID: "aditya", DisplayName: "Aditya", Gender: "M", Persona: "curious", City: "Ahmedabad", Profession: "marketing analyst", Hobby: "cricket", Language: "English"},
		{ID: "karan", DisplayName: "Karan", Gender: "M", Persona: "reserved", City: "Lucknow", Profession: "engineer", Hobby: "cooking", Language: "English"},
	}
}
