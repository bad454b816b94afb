package domain

// AgentPrompt is the prompt pair sent by one agent stage.
// Template holds one %s placeholder per stage payload.
type AgentPrompt struct {
	Template string
	System   string
}

// DefaultAgentPrompts returns the stock prompt for every agent stage.
//
// Payload order:
//   - parsing: document text
//   - retrieving: requirements
//   - drafting: requirements, knowledge
//   - reviewing: draft, requirements
func DefaultAgentPrompts() map[Stage]AgentPrompt {
	return map[Stage]AgentPrompt{
		StageParsing: {
			Template: `You are a Document Parser Agent specialized in analyzing RFP documents.
Extract the following information from this RFP:
1. Key requirements and deliverables
2. Compliance needs
3. Deadlines
4. Evaluation criteria
5. Required sections for the response

Format your response as JSON with these sections as keys.

RFP content:
%s
`,
			System: "You are a Document Parser Agent that extracts structured information from RFP documents.",
		},
		StageRetrieving: {
			Template: `You are a Knowledge Retrieval Agent for a professional services firm in Australia.
Given these RFP requirements, provide relevant information that should be included in our response:

%s

Include:
1. Suggested past projects that demonstrate relevant experience
2. Key team members who should be mentioned
3. Standard service descriptions that match the requirements
4. Relevant compliance certifications and credentials

Format as a structured list of recommendations.
`,
			System: "You are a Knowledge Retrieval Agent that finds relevant information from a company's knowledge base.",
		},
		StageDrafting: {
			Template: `You are a Response Generator Agent for an Australian professional services firm.
Create draft responses for an RFP based on these requirements and available knowledge:

RFP Requirements:
%s

Available Knowledge:
%s

Generate professional, compelling draft responses for key sections of the RFP.
Format each section with a clear heading and concise, value-focused content.
Use markdown formatting for better readability.
`,
			System: "You are a Response Generator Agent that creates professional RFP response content.",
		},
		StageReviewing: {
			Template: `You are a Quality Control Agent for RFP responses.
Review this draft RFP response against the requirements and provide feedback:

Draft Response:
%s

RFP Requirements:
%s

Provide feedback on:
1. Completeness - Are all requirements addressed?
2. Compliance - Does it meet all compliance needs?
3. Consistency - Is the response consistent throughout?
4. Areas for improvement
5. Sections requiring human expert review

Format your response in markdown with clear sections.
`,
			System: "You are a Quality Control Agent that reviews RFP responses for completeness, compliance, and quality.",
		},
	}
}

// DefaultGenerationParams returns the stock call parameters for every agent
// stage. System prompts come from the prompt store, not from here.
func DefaultGenerationParams() map[Stage]GenerationParams {
	return map[Stage]GenerationParams{
		StageParsing:    {MaxTokens: 2000, Temperature: 0},
		StageRetrieving: {MaxTokens: 2000, Temperature: 0.2},
		StageDrafting:   {MaxTokens: 3500, Temperature: 0.4},
		StageReviewing:  {MaxTokens: 2000, Temperature: 0},
	}
}
