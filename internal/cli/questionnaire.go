package cli

import "anxiety-quiz-bot/internal/domain"

// defaultQuestionnaire is the built-in question set. Option order matters: A is the calm
// reaction, B catastrophizing, C mind reading and D perfectionism.
func defaultQuestionnaire(id string) domain.Questionnaire {
	return domain.Questionnaire{
		ID:    id,
		Title: "What kind of worrier are you?",
		Questions: []domain.Question{
			{
				Ordinal: 1,
				Prompt:  "Your friend has not answered your message for three hours.",
				Options: []string{
					"She is busy, she will write later",
					"Something must have happened to her",
					"She is angry with me and ignoring me",
					"I should reread my message for mistakes",
				},
			},
			{
				Ordinal: 2,
				Prompt:  "Your manager writes: \"Can you drop by my office?\"",
				Options: []string{
					"Probably a work question",
					"I am getting fired",
					"She is disappointed in me",
					"I go over every task of the week for errors",
				},
			},
			{
				Ordinal: 3,
				Prompt:  "You feel an unusual pain in your side.",
				Options: []string{
					"I will watch it and see a doctor if it stays",
					"It has to be something serious",
					"People will think I am making it up",
					"I research every symptom until I know exactly what it is",
				},
			},
			{
				Ordinal: 4,
				Prompt:  "Friends are making plans in a chat without you.",
				Options: []string{
					"They will invite me if it fits",
					"Soon I will have no friends at all",
					"They do not want me there",
					"I should have been a better friend",
				},
			},
			{
				Ordinal: 5,
				Prompt:  "You have a presentation tomorrow.",
				Options: []string{
					"I prepare and go to bed on time",
					"I will freeze and it will be a disaster",
					"Everyone will see I am not competent",
					"I polish the slides until 3 a.m.",
				},
			},
			{
				Ordinal: 6,
				Prompt:  "Your partner seems quiet tonight.",
				Options: []string{
					"I ask how the day went",
					"This is the beginning of a breakup",
					"I did something wrong, I can feel it",
					"I try to make the evening perfect",
				},
			},
			{
				Ordinal: 7,
				Prompt:  "You made a small mistake in a work email.",
				Options: []string{
					"I send a short correction",
					"This will cause huge problems",
					"Everyone now thinks I am careless",
					"I cannot stop thinking about it all day",
				},
			},
			{
				Ordinal: 8,
				Prompt:  "You are lying in bed before sleep.",
				Options: []string{
					"I fall asleep fairly quickly",
					"I picture everything that could go wrong tomorrow",
					"I replay conversations and what people meant",
					"I plan tomorrow down to the minute",
				},
			},
		},
	}
}
